package yamlconf

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

func scalar(v Node) (string, error) {
	if v.Kind() != KindScalar {
		return "", mismatch(v, KindScalar)
	}
	return v.Text(), nil
}

// AsString returns the scalar text unchanged.
func AsString(v Node) (string, error) {
	return scalar(v)
}

// AsASCII returns the scalar text, which must be non-empty printable ASCII.
func AsASCII(v Node) (string, error) {
	s, err := scalar(v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", NewError(ErrInvalidValue, v, "empty string")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return "", NewError(ErrInvalidValue, v, "non printable ascii character at offset %d", i)
		}
	}
	return s, nil
}

// AsNodeName returns a name used to reference other configuration objects
// (servers, escapers, resolvers). Names are made of [A-Za-z0-9_.-].
func AsNodeName(v Node) (string, error) {
	s, err := scalar(v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", NewError(ErrInvalidValue, v, "empty name")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return "", NewError(ErrInvalidValue, v, "invalid character %q in name %q", r, s)
		}
	}
	return s, nil
}

// AsBool accepts exactly "true" or "false", in any letter case.
func AsBool(v Node) (bool, error) {
	s, err := scalar(v)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, NewError(ErrTypeMismatch, v, "expected boolean true or false, got %q", s)
	}
}

// AsInt64 parses a base 10 signed integer.
func AsInt64(v Node) (int64, error) {
	return asSigned(v, 64)
}

// AsInt parses a base 10 signed integer fitting the platform int.
func AsInt(v Node) (int, error) {
	n, err := asSigned(v, strconv.IntSize)
	return int(n), err
}

// AsUint64 parses a base 10 unsigned integer.
func AsUint64(v Node) (uint64, error) {
	return asUnsigned(v, 64)
}

// AsUint32 parses a base 10 unsigned integer fitting 32 bits.
func AsUint32(v Node) (uint32, error) {
	n, err := asUnsigned(v, 32)
	return uint32(n), err
}

// AsUint16 parses a base 10 unsigned integer fitting 16 bits.
func AsUint16(v Node) (uint16, error) {
	n, err := asUnsigned(v, 16)
	return uint16(n), err
}

// AsUint8 parses a base 10 unsigned integer fitting 8 bits.
func AsUint8(v Node) (uint8, error) {
	n, err := asUnsigned(v, 8)
	return uint8(n), err
}

// AsUsize parses a non-negative integer fitting the platform int.
func AsUsize(v Node) (int, error) {
	n, err := asUnsigned(v, strconv.IntSize-1)
	return int(n), err
}

// AsFloat64 parses a finite decimal number.
func AsFloat64(v Node) (float64, error) {
	s, err := scalar(v)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, NewError(ErrOutOfRange, v, "%q", s)
		}
		return 0, NewError(ErrTypeMismatch, v, "expected number, got %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, NewError(ErrOutOfRange, v, "%q is not a finite number", s)
	}
	return f, nil
}

func asSigned(v Node, bits int) (int64, error) {
	s, err := scalar(v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
	if err != nil {
		return 0, numError(v, s, err, "integer")
	}
	return n, nil
}

func asUnsigned(v Node, bits int) (uint64, error) {
	s, err := scalar(v)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") && isDigits(s[1:]) {
		return 0, NewError(ErrOutOfRange, v, "%s is negative", s)
	}
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, numError(v, s, err, "unsigned integer")
	}
	return n, nil
}

func numError(v Node, s string, err error, what string) error {
	if errors.Is(err, strconv.ErrRange) {
		return NewError(ErrOutOfRange, v, "%s does not fit", s)
	}
	return NewError(ErrTypeMismatch, v, "expected %s, got %q", what, s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
