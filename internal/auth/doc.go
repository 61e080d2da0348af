// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements the Authentication subsystem (C7): a single
// administrative user record backed by bcrypt password hashing, session
// tokens signed with a server secret, and a per-username login throttle.
//
// When the server runs with auth disabled, callers never construct an
// Authenticator and requests proceed unauthenticated; this package has no
// notion of an "unauthenticated mode" of its own.
package auth
