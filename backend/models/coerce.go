package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Count is a numeric answer. Browsers post number inputs as strings, so it
// accepts `12` and `"12"` alike; an empty string is zero.
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
	}
	n, err := parseCount(s)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	*c = n
	return nil
}

func parseCount(s string) (Count, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Count(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return Count(math.Trunc(f)), nil
}

func (c Count) Value() (driver.Value, error) {
	return int64(c), nil
}

func (c *Count) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*c = 0
	case int64:
		*c = Count(x)
	case float64:
		*c = Count(x)
	case []byte:
		return c.scanString(string(x))
	case string:
		return c.scanString(x)
	default:
		return fmt.Errorf("count: unsupported column type %T", v)
	}
	return nil
}

func (c *Count) scanString(s string) error {
	n, err := parseCount(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*c = n
	return nil
}

func (Count) GormDataType() string { return "int" }

// Flag is a yes/no answer. Radio groups post "yes"/"no", checkboxes post
// booleans; both are accepted.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
		return nil
	case float64:
		*f = v != 0
		return nil
	case string:
		parsed, err := parseFlag(v)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	default:
		return fmt.Errorf("flag: unsupported value %s", string(b))
	}
}

func parseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true, nil
	case "no", "false", "0", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("flag: not a yes/no value: %q", s)
}

func (f Flag) Value() (driver.Value, error) {
	return bool(f), nil
}

func (f *Flag) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(x)
	case int64:
		*f = x != 0
	case []byte:
		parsed, err := parseFlag(string(x))
		if err != nil {
			return err
		}
		*f = parsed
	case string:
		parsed, err := parseFlag(x)
		if err != nil {
			return err
		}
		*f = parsed
	default:
		return fmt.Errorf("flag: unsupported column type %T", v)
	}
	return nil
}

func (Flag) GormDataType() string { return "bool" }
