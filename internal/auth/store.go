// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
)

// userTable holds exactly one row (id=1): the server's single
// administrative user. bcrypt embeds its own salt in PasswordHash, so the
// record carries no separate salt column.
const userTable = "auth_user"

// UserRecord is the persisted credential for the server's single user.
type UserRecord struct {
	Username     string
	PasswordHash []byte
}

// Store is the durable home for the user record. It owns a dedicated
// SQLite database via its own hostdb.Gateway, following the same pattern
// the backup subsystem uses for its actions log.
type Store struct {
	db  *hostdb.Gateway
	log zerolog.Logger
}

// OpenStore opens (creating if necessary) the auth database at path.
func OpenStore(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		db:  hostdb.Open(path, 0, log),
		log: log.With().Str("component", "auth").Logger(),
	}
	if _, err := s.db.Run(ctx, `CREATE TABLE IF NOT EXISTS `+userTable+` (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		username TEXT NOT NULL,
		password_hash BLOB NOT NULL
	)`); err != nil {
		return nil, apperr.Backend(err, "create auth user table")
	}
	return s, nil
}

// Close releases the auth database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the user record, or ok=false if no user has ever been set.
func (s *Store) Get(ctx context.Context) (rec UserRecord, ok bool, err error) {
	row, found, err := s.db.Get(ctx, `SELECT username, password_hash FROM `+userTable+` WHERE id = 1`)
	if err != nil {
		return UserRecord{}, false, apperr.Backend(err, "read auth user")
	}
	if !found {
		return UserRecord{}, false, nil
	}
	if err := row.Scan(&rec.Username, &rec.PasswordHash); err != nil {
		return UserRecord{}, false, apperr.Backend(err, "scan auth user")
	}
	return rec, true, nil
}

// Set upserts the user record, replacing any prior username or password.
func (s *Store) Set(ctx context.Context, rec UserRecord) error {
	_, err := s.db.Run(ctx,
		`INSERT INTO `+userTable+` (id, username, password_hash) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, password_hash = excluded.password_hash`,
		rec.Username, rec.PasswordHash)
	if err != nil {
		return apperr.Backend(err, "write auth user")
	}
	return nil
}
