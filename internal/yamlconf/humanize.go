package yamlconf

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// AsDuration parses a humanized duration. Go duration syntax is accepted
// ("500ms", "90s", "2h30m") as well as a bare integer meaning seconds.
// Negative durations are rejected.
func AsDuration(v Node) (time.Duration, error) {
	s, err := scalar(v)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewError(ErrInvalidDuration, v, "empty value")
	}
	if isDigits(s) {
		secs, err := strconv.ParseUint(s, 10, 63)
		if err != nil || secs > math.MaxInt64/uint64(time.Second) {
			return 0, NewError(ErrOutOfRange, v, "%s seconds does not fit a duration", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, WrapError(ErrInvalidDuration, v, err)
	}
	if d < 0 {
		return 0, NewError(ErrInvalidDuration, v, "negative duration %q", s)
	}
	return d, nil
}

// AsSize parses a humanized byte count. A bare integer is a byte count;
// otherwise a magnitude is followed by a unit where K, M, G, T (and KB, MB,
// ...) are powers of 1000 and Ki, Mi, Gi, Ti (and KiB, MiB, ...) are powers
// of 1024. Units are case insensitive.
func AsSize(v Node) (uint64, error) {
	s, err := scalar(v)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewError(ErrInvalidSize, v, "empty value")
	}
	if isDigits(s) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, NewError(ErrOutOfRange, v, "%s does not fit", s)
		}
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, WrapError(ErrInvalidSize, v, err)
	}
	return n, nil
}

// AsSizeInt is AsSize bounded to the platform int.
func AsSizeInt(v Node) (int, error) {
	n, err := AsSize(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, NewError(ErrOutOfRange, v, "%d bytes is too large", n)
	}
	return int(n), nil
}

// AsSizeUint32 is AsSize bounded to 32 bits.
func AsSizeUint32(v Node) (uint32, error) {
	n, err := AsSize(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, NewError(ErrOutOfRange, v, "%d bytes is too large", n)
	}
	return uint32(n), nil
}
