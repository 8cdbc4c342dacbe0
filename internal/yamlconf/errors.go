package yamlconf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reasons a conversion can fail. Every error returned by this package and
// by the builders on top of it matches exactly one of these with errors.Is.
var (
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrUnknownKey          = errors.New("unknown key")
	ErrMissingKey          = errors.New("missing key")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidDomainName   = errors.New("invalid domain name")
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidRegex        = errors.New("invalid regex")
	ErrInvalidSize         = errors.New("invalid size")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidValue        = errors.New("invalid value")
	ErrNonMonotonicBuckets = errors.New("non-monotonic buckets")
	ErrOutOfRange          = errors.New("out of range")
	ErrInvalidCertificate  = errors.New("invalid certificate")
	ErrInvalidPrivateKey   = errors.New("invalid private key")
	ErrUnsupportedFeature  = errors.New("unsupported feature")
	ErrInvalidDocument     = errors.New("invalid document")
)

// Segment is one step of a key path: a mapping key or a sequence index.
type Segment struct {
	Key   string
	Index int
	index bool
}

// KeySegment returns the segment for mapping key k.
func KeySegment(k string) Segment { return Segment{Key: k} }

// IndexSegment returns the segment for sequence index i.
func IndexSegment(i int) Segment { return Segment{Index: i, index: true} }

// IsIndex reports whether the segment is a sequence index.
func (s Segment) IsIndex() bool { return s.index }

func (s Segment) String() string {
	if s.index {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is the key path from the document root to a node.
type Path []Segment

// String renders the path dotted, e.g. "servers.0.tls.cert".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Error is a conversion failure qualified with where it happened.
type Error struct {
	// Kind is one of the Err* reasons above.
	Kind error
	// Path is the key path of the failing node. It is relative until the
	// error passes through a Context, which prefixes the current path.
	Path Path
	// Pos is the source position of the failing node, zero if unknown.
	Pos Position
	// Detail is a short human readable explanation.
	Detail string
	// Err is the underlying cause, if any.
	Err error

	qualified bool
}

// NewError returns an error of the given kind located at v.
func NewError(kind error, v Node, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Pos:    v.Pos(),
		Detail: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an error of the given kind located at v, caused by err.
func WrapError(kind error, v Node, err error) *Error {
	return &Error{
		Kind: kind,
		Pos:  v.Pos(),
		Err:  err,
	}
}

// UnknownKey returns the error for a key the current builder does not know.
func UnknownKey(k string, v Node) error {
	return NewError(ErrUnknownKey, v, "%q", k)
}

// MissingKey returns the error for a required key absent from mapping v.
func MissingKey(v Node, k string) error {
	return NewError(ErrMissingKey, v, "%q is required", k)
}

// Error renders "<path>: <reason>[: detail][: cause] (line L, column C)".
func (e *Error) Error() string {
	var b strings.Builder
	if len(e.Path) > 0 {
		b.WriteString(e.Path.String())
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("conversion failed")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Pos.Line > 0 {
		fmt.Fprintf(&b, " (%s)", e.Pos)
	}
	return b.String()
}

// Unwrap exposes both the reason and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// PathOf returns the qualified key path carried by err, if any.
func PathOf(err error) (Path, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e.Path, true
}
