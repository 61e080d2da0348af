// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/logging"
)

// Config tunes an Authenticator. SessionTimeout comes straight from the
// live server configuration; PasswordCost is not a server setting and is
// whatever the caller passes. Secret must be stable
// across a process restart if sessions are meant to survive it (it is
// only used to verify bearer tokens against already-open sessions, so a
// rotated secret simply forces every holder to log in again).
type Config struct {
	Secret         []byte
	SessionTimeout time.Duration
	PasswordCost   int
}

// Authenticator implements C7: the single-user credential store, session
// lifecycle, and login throttle described in the specification.
type Authenticator struct {
	store    *Store
	sessions SessionStore
	signer   *tokenSigner
	throttle *loginThrottle
	timeout  time.Duration
	cost     int
	secLog   *logging.SecurityLogger
}

// New builds an Authenticator. sessions defaults to an in-memory store
// when nil, giving every restart a clean slate.
func New(store *Store, sessions SessionStore, cfg Config, log zerolog.Logger) (*Authenticator, error) {
	signer, err := newTokenSigner(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	return &Authenticator{
		store:    store,
		sessions: sessions,
		signer:   signer,
		throttle: newLoginThrottle(rate.Every(2*time.Second), 5),
		timeout:  cfg.SessionTimeout,
		cost:     cfg.PasswordCost,
		secLog:   logging.NewSecurityLoggerWithLogger(log.With().Str("component", "auth").Logger()),
	}, nil
}

// HasUser reports whether a user record has ever been set, which changes
// changePassword's verification requirement.
func (a *Authenticator) HasUser(ctx context.Context) (bool, error) {
	_, ok, err := a.store.Get(ctx)
	return ok, err
}

// SetPassword sets the user's credentials unconditionally. Used for first
// setup (no prior user record) and is equivalent to ChangePassword's
// no-prior-password branch.
func (a *Authenticator) SetPassword(ctx context.Context, username, password string) error {
	hash, err := hashPassword(password, a.cost)
	if err != nil {
		return apperr.Backend(err, "hash password")
	}
	return a.store.Set(ctx, UserRecord{Username: username, PasswordHash: hash})
}

// ChangePassword requires old to verify against the current record,
// except when no password has ever been set.
func (a *Authenticator) ChangePassword(ctx context.Context, old, newPassword string) error {
	rec, ok, err := a.store.Get(ctx)
	if err != nil {
		return err
	}
	if ok && !verifyPassword(rec.PasswordHash, old) {
		return apperr.Unauthorized("current password does not match")
	}
	username := rec.Username
	if !ok {
		username = "admin"
	}
	if err := a.SetPassword(ctx, username, newPassword); err != nil {
		return err
	}
	// Every existing bearer token is for the old password; force re-login.
	if err := a.sessions.DeleteAll(ctx); err != nil {
		return err
	}
	a.secLog.LogSessionRevoked(username, "", username, "")
	return nil
}

// Login verifies password against the stored user record and, on
// success, mints a new session and its signed bearer token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	if !a.throttle.allow(username) {
		a.secLog.LogLoginThrottled(username, "", "")
		return "", apperr.Forbidden("too many login attempts, slow down")
	}

	rec, ok, err := a.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if !ok || rec.Username != username || !verifyPassword(rec.PasswordHash, password) {
		a.secLog.LogLoginFailure(username, "basic", "", "", "invalid username or password")
		return "", apperr.Unauthorized("invalid username or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", apperr.Backend(err, "generate session token")
	}
	now := time.Now()
	session := Session{
		Token:            token,
		CreatedAtEpochMs: now.UnixMilli(),
		LastUsedEpochMs:  now.UnixMilli(),
		ExpiresAtEpochMs: now.Add(a.timeout).UnixMilli(),
	}
	if err := a.sessions.Create(ctx, session); err != nil {
		return "", apperr.Backend(err, "create session")
	}

	bearer, err := a.signer.sign(token, now.Add(a.timeout))
	if err != nil {
		return "", apperr.Backend(err, "sign session token")
	}
	a.secLog.LogLoginSuccess(username, username, "basic", "", "")
	return bearer, nil
}

// Authenticate verifies bearer, bumping the underlying session's
// LastUsedEpochMs and sliding its expiry forward by the session timeout.
// Returns apperr.KindUnauthorized for any failure: unsigned/tampered
// token, unknown session, or expiry.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (Session, error) {
	token, err := a.signer.verify(bearer)
	if err != nil {
		return Session{}, apperr.Unauthorized("invalid session token")
	}

	session, err := a.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return Session{}, apperr.Unauthorized("session expired or revoked")
		}
		return Session{}, apperr.Backend(err, "read session")
	}

	now := time.Now()
	newExpiry := now.Add(a.timeout)
	if err := a.sessions.Touch(ctx, token, now.UnixMilli(), newExpiry.UnixMilli()); err != nil {
		return Session{}, apperr.Backend(err, "touch session")
	}
	session.LastUsedEpochMs = now.UnixMilli()
	session.ExpiresAtEpochMs = newExpiry.UnixMilli()
	return session, nil
}

// Logout revokes bearer's underlying session. Not an error if already gone.
func (a *Authenticator) Logout(ctx context.Context, bearer string) error {
	token, err := a.signer.verify(bearer)
	if err != nil {
		return nil
	}
	if err := a.sessions.Delete(ctx, token); err != nil {
		return err
	}
	a.secLog.LogLogout("", token, "")
	return nil
}
