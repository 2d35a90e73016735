package app

import "grove/internal/domain"

// App is the service surface commands run against.
type App struct {
	IDs         domain.IdentityService
	KeyPackages domain.KeyPackageService
	Groups      domain.GroupService
	Messages    domain.MessageService
}

// New returns the App view of w.
func New(w *Wire) *App {
	return &App{
		IDs:         w.Identity,
		KeyPackages: w.KeyPackages,
		Groups:      w.Groups,
		Messages:    w.Messages,
	}
}
