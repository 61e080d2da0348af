// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/tls"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// expectedHostTables are the host database tables the editor depends on.
// Duplicated from internal/markers/schema.go rather than imported, since
// neither package may import the other and these are a handful of stable
// literals, not logic (same convention as internal/cache's schema consts).
var expectedHostTables = []string{"metadata_items", "taggings", "tags"}

func validateDataPath(path string) (bool, string) {
	if path == "" {
		return false, "data path is required"
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("data path does not exist: %v", err)
	}
	if !info.IsDir() {
		return false, "data path must be a directory"
	}
	candidates := []string{
		filepath.Join(path, "Media", "localhost"),
		filepath.Join(path, "Plug-in Support", "Databases"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true, ""
		}
	}
	return false, "data path must contain Media/localhost or Plug-in Support/Databases"
}

func validateDatabasePath(path string) (bool, string) {
	if path == "" {
		return false, "database path is required"
	}
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("database path does not exist: %v", err)
	}
	magic := make([]byte, len(sqliteMagic))
	_, readErr := f.Read(magic)
	f.Close()
	if readErr != nil || string(magic) != string(sqliteMagic) {
		return false, "database path is not a SQLite database"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return false, fmt.Sprintf("database path could not be opened: %v", err)
	}
	defer db.Close()
	for _, table := range expectedHostTables {
		var exists int
		row := db.QueryRow(`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err := row.Scan(&exists); err != nil {
			return false, fmt.Sprintf("database is missing the expected %q table", table)
		}
	}
	return true, ""
}

// validateHostPort proves host+port bind on a throwaway socket, which
// catches an unresolvable host and an in-use port in one attempt.
func validateHostPort(host string, port int) (bool, string) {
	if port < 1 || port > 65535 {
		return false, "port must be between 1 and 65535"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, fmt.Sprintf("cannot bind %s: %v", addr, err)
	}
	ln.Close()
	return true, ""
}

func validateSessionTimeout(d time.Duration) (bool, string) {
	if d < 300*time.Second {
		return false, "session timeout must be at least 300 seconds"
	}
	return true, ""
}

func validatePathMappings(mappings []PathMapping) (bool, string) {
	for _, m := range mappings {
		if m.From == "" {
			return false, "path mapping 'from' must not be empty"
		}
		if _, err := os.Stat(m.To); err != nil {
			return false, fmt.Sprintf("path mapping target %q does not exist", m.To)
		}
	}
	return true, ""
}

func validateTLSPair(certPath, keyPath string) (bool, string) {
	if certPath == "" && keyPath == "" {
		return true, ""
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		return false, fmt.Sprintf("invalid certificate/key pair: %v", err)
	}
	return true, ""
}

// ValidateField implements the validateField(name, value) live-feedback
// command (spec §4.6): it checks one setting in isolation, without
// persisting anything. host and port get their single-value checks here.
// The TLS pair can't be verified in isolation (a key pair needs both
// values), so ssl_cert and ssl_key report valid here and are checked
// together in Validate.
func ValidateField(name string, value any) (bool, string) {
	switch name {
	case "data_path":
		s, _ := value.(string)
		return validateDataPath(s)
	case "database_path":
		s, _ := value.(string)
		return validateDatabasePath(s)
	case "host":
		s, _ := value.(string)
		if s == "" {
			return false, "host is required"
		}
		return true, ""
	case "port":
		p, _ := value.(int)
		if p < 1 || p > 65535 {
			return false, "port must be between 1 and 65535"
		}
		return true, ""
	case "session_timeout":
		d, _ := value.(time.Duration)
		return validateSessionTimeout(d)
	case "path_mappings":
		m, _ := value.([]PathMapping)
		return validatePathMappings(m)
	default:
		return true, ""
	}
}
