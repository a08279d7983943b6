package timespec

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTimespec is returned for specs that do not match the grammar or
// use an unknown unit.
var ErrInvalidTimespec = fmt.Errorf("invalid timespec")

var specPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([a-z]+)$`)

// Factors in seconds. Note that "m" means month, not minute.
var unitFactors = map[string]int64{
	"s":       1,
	"second":  1,
	"seconds": 1,
	"minute":  60,
	"minutes": 60,
	"h":       3600,
	"hour":    3600,
	"hours":   3600,
	"d":       86400,
	"day":     86400,
	"days":    86400,
	"m":       2678400,
	"month":   2678400,
	"months":  2678400,
	"y":       31536000,
	"year":    31536000,
	"years":   31536000,
}

// Parse converts an age specification like "5d" or "1.5h" into a number of
// seconds. Fractional values are truncated after applying the unit factor.
func Parse(spec string) (int64, error) {
	m := specPattern.FindStringSubmatch(spec)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimespec, spec)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimespec, spec)
	}

	factor, ok := unitFactors[m[2]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidTimespec, m[2])
	}

	return int64(value * float64(factor)), nil
}

// ParseDuration is Parse with the result as a time.Duration.
func ParseDuration(spec string) (time.Duration, error) {
	seconds, err := Parse(spec)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
