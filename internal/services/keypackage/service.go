package keypackage

import (
	"fmt"
	"log/slog"
	"time"

	"grove/internal/crypto"
	"grove/internal/domain"
	kp "grove/internal/protocol/keypackage"
)

// Service generates key packages signed with the local identity.
type Service struct {
	ids      domain.IdentityStore
	kps      domain.KeyPackageStore
	suite    crypto.Suite
	lifetime time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLifetime sets how long generated key packages stay valid.
func WithLifetime(d time.Duration) Option { return func(s *Service) { s.lifetime = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// New returns a key package service for suite.
func New(ids domain.IdentityStore, kps domain.KeyPackageStore, suite crypto.Suite, opts ...Option) *Service {
	s := &Service{
		ids:      ids,
		kps:      kps,
		suite:    suite,
		lifetime: kp.DefaultLifetime,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateKeyPackages creates count key packages, stores their private keys
// and returns the public halves for publication.
func (s *Service) GenerateKeyPackages(passphrase string, count int) ([]domain.KeyPackage, error) {
	if count < 1 {
		return nil, errBadCount
	}
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}

	out := make([]domain.KeyPackage, 0, count)
	for i := 0; i < count; i++ {
		pkg, priv, err := kp.Generate(
			s.suite,
			id.Credential,
			id.SignaturePrivate,
			kp.DefaultCapabilities(),
			kp.LifetimeFrom(s.now(), s.lifetime),
		)
		if err != nil {
			return nil, err
		}
		ref := kp.Ref(s.suite, pkg)
		if err := s.kps.SaveKeyPackage(ref, pkg, priv); err != nil {
			return nil, fmt.Errorf("save key package %s: %w", ref, err)
		}
		s.log.Debug("key package generated", "ref", ref)
		out = append(out, pkg)
	}
	s.log.Info("key packages generated", "count", count, "suite", s.suite.ID())
	return out, nil
}

var errBadCount = errString("key package count must be positive")

type errString string

func (e errString) Error() string { return string(e) }

// Compile-time assertion that Service implements domain.KeyPackageService.
var _ domain.KeyPackageService = (*Service)(nil)
