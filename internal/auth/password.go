// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is used when a configured cost is out of bcrypt's
// accepted range.
const DefaultPasswordCost = bcrypt.DefaultCost

// hashPassword hashes password with bcrypt at the given cost. bcrypt
// generates and embeds its own per-hash salt, so the returned hash is
// self-contained.
func hashPassword(password string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// verifyPassword reports whether password matches hash. bcrypt's comparison
// is constant-time with respect to the password content.
func verifyPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
