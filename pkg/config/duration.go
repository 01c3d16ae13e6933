package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDuration parses a duration string with support for days (d).
// Examples: "30d", "7d", "168h", "5m", "30s". Strings without a
// day-suffix fall back to standard Go duration parsing.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if matches == nil {
		return time.ParseDuration(s)
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	var unit time.Duration
	switch matches[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", matches[2])
	}

	return time.Duration(value) * unit, nil
}

// ParseLookbackDays parses a lookback flag into whole days. Accepts a bare
// number of days ("30") or any ParseDuration string ("30d", "720h").
func ParseLookbackDays(s string) (int, error) {
	if days, err := strconv.Atoi(s); err == nil {
		if days <= 0 {
			return 0, fmt.Errorf("lookback must be positive, got %d", days)
		}
		return days, nil
	}

	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("lookback must be positive, got %s", s)
	}

	days := int(d / (24 * time.Hour))
	if days == 0 {
		days = 1
	}
	return days, nil
}
