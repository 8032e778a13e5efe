package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedDuration is returned for durations that are neither "<h>h <m>m"
// nor a plain minute count.
var ErrMalformedDuration = errors.New("malformed duration")

// ToMinutes converts a duration as printed by the site ("2h 15m", "3h",
// "45m", "120 min") to minutes. A missing value counts as zero.
func ToMinutes(d string) (int, error) {
	s := strings.TrimSpace(d)
	if s == "" {
		return 0, nil
	}
	if hours, rest, ok := strings.Cut(s, "h"); ok {
		h, err := parseCount(hours)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, d)
		}
		m := 0
		if rest = trimMinutes(rest); rest != "" {
			if m, err = parseCount(rest); err != nil {
				return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, d)
			}
		}
		return h*60 + m, nil
	}
	m, err := parseCount(trimMinutes(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, d)
	}
	return m, nil
}

func trimMinutes(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := strings.CutSuffix(s, "min"); ok {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "m"))
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
