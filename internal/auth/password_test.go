// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple", 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !verifyPassword(hash, "correct horse battery staple") {
		t.Error("expected verifyPassword to succeed for the correct password")
	}
	if verifyPassword(hash, "wrong password") {
		t.Error("expected verifyPassword to fail for the wrong password")
	}
}

func TestHashPasswordClampsOutOfRangeCost(t *testing.T) {
	if _, err := hashPassword("some password", 0); err != nil {
		t.Fatalf("hashPassword with cost 0: %v", err)
	}
	if _, err := hashPassword("some password", 1000); err != nil {
		t.Fatalf("hashPassword with cost 1000: %v", err)
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := hashPassword("same password", 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	h2, err := hashPassword("same password", 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if string(h1) == string(h2) {
		t.Error("expected two hashes of the same password to differ (bcrypt salts each call)")
	}
}
