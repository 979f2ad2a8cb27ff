package sdp

import (
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Unset marks an absent numeric field: a bitrate that was never given or an
// rtpmap without encoding parameters.
const Unset = -1

// Attribute names with typed values inside a media block.
const (
	AttrRtpMap = "rtpmap"
	AttrFmtp   = "fmtp"
)

// RtpMapAttribute binds an RTP payload type to an encoding and clock rate
// (a=rtpmap:<payload type> <encoding>/<clock rate>[/<encoding parameters>]).
type RtpMapAttribute struct {
	payloadType        int
	encoding           string
	clockRate          int
	encodingParameters int
}

// NewRtpMap returns an rtpmap value. Pass Unset for encodingParameters when
// the attribute carries none.
func NewRtpMap(payloadType int, encoding string, clockRate, encodingParameters int) RtpMapAttribute {
	return RtpMapAttribute{
		payloadType:        payloadType,
		encoding:           encoding,
		clockRate:          clockRate,
		encodingParameters: encodingParameters,
	}
}

// ParseRtpMap parses an rtpmap attribute value such as "97 AMR-WB/16000/1".
// Numbers that are not integers become Unset. The value must hold exactly
// one space and two or three slash-separated segments.
func ParseRtpMap(value string) (RtpMapAttribute, error) {
	fields := strings.Split(value, " ")
	if len(fields) != 2 {
		return RtpMapAttribute{}, fmt.Errorf("%w: rtpmap %q: want \"<pt> <encoding>/<clock>\"", ErrMalformedAttribute, value)
	}
	parts := strings.Split(fields[1], "/")
	if len(parts) < 2 || len(parts) > 3 {
		return RtpMapAttribute{}, fmt.Errorf("%w: rtpmap %q: want 2 or 3 encoding segments, got %d", ErrMalformedAttribute, value, len(parts))
	}

	m := RtpMapAttribute{
		payloadType:        atoiOr(fields[0], Unset),
		encoding:           parts[0],
		clockRate:          atoiOr(parts[1], Unset),
		encodingParameters: Unset,
	}
	if len(parts) == 3 {
		m.encodingParameters = atoiOr(parts[2], Unset)
	}
	return m, nil
}

// MustParseRtpMap is like ParseRtpMap but panics on malformed input.
func MustParseRtpMap(value string) RtpMapAttribute {
	m, err := ParseRtpMap(value)
	if err != nil {
		panic(err)
	}
	return m
}

func (m RtpMapAttribute) PayloadType() int        { return m.payloadType }
func (m RtpMapAttribute) Encoding() string        { return m.encoding }
func (m RtpMapAttribute) ClockRate() int          { return m.clockRate }
func (m RtpMapAttribute) EncodingParameters() int { return m.encodingParameters }

// Equal reports whether m and o describe the same mapping. Encoding names
// compare case-insensitively.
func (m RtpMapAttribute) Equal(o RtpMapAttribute) bool {
	return m.payloadType == o.payloadType &&
		m.clockRate == o.clockRate &&
		m.encodingParameters == o.encodingParameters &&
		strings.EqualFold(m.encoding, o.encoding)
}

// Hash returns a hash that is stable across processes and consistent with
// Equal. The encoding is hashed in a case-folded form, so names that
// EqualFold matches (including pairs like "ſ" and "S") hash alike.
func (m RtpMapAttribute) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d\x00%s\x00%d\x00%d", m.payloadType, foldKey(m.encoding), m.clockRate, m.encodingParameters)
	return h.Sum64()
}

func foldKey(s string) string {
	return strings.ToLower(strings.ToUpper(s))
}

// String returns the attribute value in wire form.
func (m RtpMapAttribute) String() string {
	if m.encodingParameters == Unset {
		return fmt.Sprintf("%d %s/%d", m.payloadType, m.encoding, m.clockRate)
	}
	return fmt.Sprintf("%d %s/%d/%d", m.payloadType, m.encoding, m.clockRate, m.encodingParameters)
}

// FmtpAttribute carries format-specific parameters
// (a=fmtp:<format> <key>=<value>[;<key>=<value>...]).
type FmtpAttribute struct {
	format string
	params map[string]string
}

// NewFmtp returns an fmtp value. params is copied.
func NewFmtp(format string, params map[string]string) FmtpAttribute {
	f := FmtpAttribute{format: format, params: make(map[string]string, len(params))}
	maps.Copy(f.params, params)
	return f
}

// ParseFmtp parses an fmtp attribute value such as
// "97 octet-align=1;mode-set=0,1,2". Parameters are separated by ';' with
// optional following whitespace; a repeated key keeps its last value.
func ParseFmtp(value string) (FmtpAttribute, error) {
	format, blob, ok := strings.Cut(value, " ")
	if !ok || format == "" {
		return FmtpAttribute{}, fmt.Errorf("%w: fmtp %q: want \"<format> <parameters>\"", ErrMalformedAttribute, value)
	}

	f := FmtpAttribute{format: format, params: make(map[string]string)}
	for _, param := range strings.Split(blob, ";") {
		param = strings.TrimLeft(param, " \t")
		if param == "" {
			continue
		}
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return FmtpAttribute{}, fmt.Errorf("%w: fmtp %q: parameter %q has no value", ErrMalformedAttribute, value, param)
		}
		f.params[key] = val
	}
	return f, nil
}

// MustParseFmtp is like ParseFmtp but panics on malformed input.
func MustParseFmtp(value string) FmtpAttribute {
	f, err := ParseFmtp(value)
	if err != nil {
		panic(err)
	}
	return f
}

func (f FmtpAttribute) Format() string { return f.format }

// Parameters returns a copy of the parameter map.
func (f FmtpAttribute) Parameters() map[string]string {
	return maps.Clone(f.params)
}

// Parameter returns the value of one parameter.
func (f FmtpAttribute) Parameter(key string) (string, bool) {
	v, ok := f.params[key]
	return v, ok
}

// Equal reports whether f and o carry the same parameters for the same
// format. Formats compare case-insensitively.
func (f FmtpAttribute) Equal(o FmtpAttribute) bool {
	return strings.EqualFold(f.format, o.format) && maps.Equal(f.params, o.params)
}

// String returns the attribute value in wire form with parameters in key
// order.
func (f FmtpAttribute) String() string {
	var b strings.Builder
	b.WriteString(f.format)
	b.WriteByte(' ')
	for i, k := range slices.Sorted(maps.Keys(f.params)) {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f.params[k])
	}
	return b.String()
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
