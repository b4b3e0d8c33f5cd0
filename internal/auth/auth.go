// Package auth carries the admin session through a context and checks
// the back-office credentials configured in the environment.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"doacoes/internal/apperr"
	"doacoes/internal/config"
)

type Session struct {
	Username string
	Admin    bool
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Checker answers whether the caller behind ctx may mutate the catalog.
type Checker interface {
	IsAdminSession(ctx context.Context) bool
}

// ContextChecker reads the session stored by WithSession.
type ContextChecker struct{}

func (ContextChecker) IsAdminSession(ctx context.Context) bool {
	s, ok := FromContext(ctx)
	return ok && s.Admin
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) bool

func (f CheckerFunc) IsAdminSession(ctx context.Context) bool {
	return f(ctx)
}

type Authenticator struct {
	username string
	password string
}

func NewAuthenticator(cfg config.Config) *Authenticator {
	return &Authenticator{username: cfg.AdminUsername, password: cfg.AdminPassword}
}

// Login returns ctx carrying an admin session when the credentials match.
// An unconfigured password never matches.
func (a *Authenticator) Login(ctx context.Context, username, password string) (context.Context, error) {
	if strings.TrimSpace(a.password) == "" {
		return ctx, apperr.Unauthorized()
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		return ctx, apperr.Unauthorized()
	}
	return WithSession(ctx, Session{Username: username, Admin: true}), nil
}
