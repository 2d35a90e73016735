// Package keypackage generates publishable key packages for the local client
// and keeps their private halves until a Welcome consumes them.
package keypackage
