package sdp

import (
	"errors"
	"fmt"
)

// Sentinel errors. Parse failures are reported as *ParseError and strict
// serialization failures as *ValidationError; both unwrap to one of these.
var (
	ErrInvalidLine        = errors.New("sdp: invalid line")
	ErrUnsupportedVersion = errors.New("sdp: unsupported version")
	ErrInvalidAttribute   = errors.New("sdp: invalid attribute")
	ErrInvalidMediaLine   = errors.New("sdp: invalid media line")
	ErrInvalidBandwidth   = errors.New("sdp: invalid bandwidth")
	ErrMalformedAttribute = errors.New("sdp: malformed attribute value")
	ErrNoRtpMap           = errors.New("sdp: media description has no rtpmap attribute")
	ErrBuilderConsumed    = errors.New("sdp: builder already built")
	ErrIllegalLength      = errors.New("sdp: illegal length")
)

// ParseError records the line that failed to parse. Line is 1-based.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sdp: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a strict-mode cardinality violation. Attribute is
// one of "payload", "rtpMapAttributes" or "fmtpAttributes".
type ValidationError struct {
	Attribute string
	Media     int
	Count     int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sdp: illegal length of %s in media %d: %d", e.Attribute, e.Media, e.Count)
}

func (e *ValidationError) Unwrap() error {
	return ErrIllegalLength
}
