// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package hostdb

import "fmt"

// convertAssign copies src (as produced by the sqlite driver: int64,
// float64, string, []byte, bool, or nil) into dest, which must be a
// pointer to one of the types below. This mirrors database/sql's own
// convertAssign in spirit but stays small since the driver already
// normalizes SQLite's dynamic typing into a handful of Go types.
func convertAssign(dest, src interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = src
		return nil
	case *int64:
		v, err := asInt64(src)
		if err != nil {
			return err
		}
		*d = v
		return nil
	case *int:
		v, err := asInt64(src)
		if err != nil {
			return err
		}
		*d = int(v)
		return nil
	case *string:
		v, err := asString(src)
		if err != nil {
			return err
		}
		*d = v
		return nil
	case *bool:
		v, err := asInt64(src)
		if err != nil {
			return err
		}
		*d = v != 0
		return nil
	case *float64:
		v, err := asFloat64(src)
		if err != nil {
			return err
		}
		*d = v
		return nil
	case *[]byte:
		switch s := src.(type) {
		case []byte:
			*d = s
			return nil
		case string:
			*d = []byte(s)
			return nil
		case nil:
			*d = nil
			return nil
		}
		return fmt.Errorf("cannot convert %T to []byte", src)
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
}

func asInt64(src interface{}) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return parseInt64(string(v))
	case string:
		return parseInt64(v)
	case nil:
		return 0, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", src)
	}
}

func asFloat64(src interface{}) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", src)
	}
}

func asString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", src)
	}
}

func parseInt64(s string) (int64, error) {
	var neg bool
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("cannot convert %q to int64", s)
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("cannot convert %q to int64", s)
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
