// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "testing"

func TestDescribeReportsUnchangedDefaults(t *testing.T) {
	cfg := defaultConfig()
	out := Describe(cfg)

	level, ok := out["logLevel"].(Setting[string])
	if !ok {
		t.Fatalf("logLevel has unexpected type %T", out["logLevel"])
	}
	if !level.Unchanged {
		t.Error("logLevel at default value should report Unchanged")
	}
	if level.Value != cfg.LogLevel {
		t.Errorf("logLevel.Value = %q, want %q", level.Value, cfg.LogLevel)
	}
}

func TestDescribeFlagsInvalidField(t *testing.T) {
	cfg := defaultConfig()
	cfg.DataPath = "/does/not/exist"
	out := Describe(cfg)

	dataPath, ok := out["dataPath"].(Setting[string])
	if !ok {
		t.Fatalf("dataPath has unexpected type %T", out["dataPath"])
	}
	if dataPath.IsValid {
		t.Error("nonexistent data path should report invalid")
	}
	if dataPath.InvalidMessage == "" {
		t.Error("expected a non-empty invalid message")
	}
}

func TestDescribeReportsUsernameChanged(t *testing.T) {
	cfg := defaultConfig()
	cfg.Username = "alice"
	out := Describe(cfg)

	username, ok := out["username"].(Setting[string])
	if !ok {
		t.Fatalf("username has unexpected type %T", out["username"])
	}
	if username.Unchanged {
		t.Error("username changed from default should not report Unchanged")
	}
}
