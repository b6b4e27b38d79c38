package errortrigger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const tick = 100 * time.Nanosecond

var errOutOfRange = errors.New("out of range")

// ParseWindow parses a window or throttle duration. It accepts the
// "[-][d.]hh:mm[:ss[.fffffff]]" time span notation ("00:05:00") as well as Go
// duration strings ("5m"). An empty string yields zero, meaning unset.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var (
		d   time.Duration
		err error
	)
	if strings.Contains(s, ":") {
		d, err = parseTimeSpan(s)
	} else {
		d, err = time.ParseDuration(s)
	}
	if errors.Is(err, errOutOfRange) {
		return 0, &ConfigurationError{Field: "window", Reason: fmt.Sprintf("%q is out of range", s)}
	}
	if err != nil {
		return 0, &ConfigurationError{Field: "window", Reason: fmt.Sprintf("cannot parse %q: %v", s, err)}
	}
	if d < 0 {
		return 0, &ConfigurationError{Field: "window", Reason: fmt.Sprintf("must not be negative, got %q", s)}
	}
	return d, nil
}

func parseTimeSpan(s string) (time.Duration, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	head, rest, _ := strings.Cut(s, ":")
	var days int64
	if dayPart, hourPart, ok := strings.Cut(head, "."); ok {
		v, err := parseField("days", dayPart, -1)
		if err != nil {
			return 0, err
		}
		days = v
		head = hourPart
	}
	hours, err := parseField("hours", head, 23)
	if err != nil {
		return 0, err
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 2 {
		return 0, errors.New("too many components")
	}
	minutes, err := parseField("minutes", parts[0], 59)
	if err != nil {
		return 0, err
	}

	var seconds, ticks int64
	if len(parts) == 2 {
		secPart, fracPart, hasFrac := strings.Cut(parts[1], ".")
		if seconds, err = parseField("seconds", secPart, 59); err != nil {
			return 0, err
		}
		if hasFrac {
			if len(fracPart) > 7 {
				return 0, errors.New("fraction has more than 7 digits")
			}
			if ticks, err = parseField("fraction", fracPart+strings.Repeat("0", 7-len(fracPart)), -1); err != nil {
				return 0, err
			}
		}
	}

	var d time.Duration
	for _, c := range []struct {
		n    int64
		unit time.Duration
	}{
		{days, 24 * time.Hour},
		{hours, time.Hour},
		{minutes, time.Minute},
		{seconds, time.Second},
		{ticks, tick},
	} {
		if d, err = addScaled(d, c.n, c.unit); err != nil {
			return 0, err
		}
	}
	if neg {
		d = -d
	}
	return d, nil
}

// addScaled returns total + n*unit, or errOutOfRange if the result does not
// fit in a time.Duration.
func addScaled(total time.Duration, n int64, unit time.Duration) (time.Duration, error) {
	if n > int64(math.MaxInt64/unit) {
		return 0, errOutOfRange
	}
	add := time.Duration(n) * unit
	if total > math.MaxInt64-add {
		return 0, errOutOfRange
	}
	return total + add, nil
}

// parseField parses an unsigned decimal component. limit < 0 means unbounded.
func parseField(name, v string, limit int64) (int64, error) {
	if v == "" {
		return 0, fmt.Errorf("%s is empty", name)
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%s %q is not a number", name, v)
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if limit >= 0 && n > limit {
		return 0, fmt.Errorf("%s %d out of range", name, n)
	}
	return n, nil
}

// FormatWindow renders d as "[-][d.]hh:mm:ss[.fffffff]", the notation used in
// sliding window messages.
func FormatWindow(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second

	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if ticks := d / tick; ticks > 0 {
		fmt.Fprintf(&b, ".%07d", ticks)
	}
	return b.String()
}
