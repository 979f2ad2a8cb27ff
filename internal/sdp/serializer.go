package sdp

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Unparse writes d as SDP text with CRLF line endings. Session lines come in
// the order v o s t u i k e p c b, then session attributes sorted by name,
// then each media block as m i c b k, rtpmaps, fmtps and sorted attributes.
// Empty optional fields are left out.
//
// In strict mode every media block must have exactly one payload type,
// exactly one rtpmap and at most one fmtp; otherwise a *ValidationError is
// returned and no text.
func Unparse(d SessionDescription, strict bool) (string, error) {
	if strict {
		if err := validateStrict(d); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	writeLine(&b, "v", Version)
	writeOptional(&b, "o", d.origin)
	writeOptional(&b, "s", d.sessionName)
	writeOptional(&b, "t", d.timing)
	writeOptional(&b, "u", d.uri)
	writeOptional(&b, "i", d.sessionInfo)
	writeOptional(&b, "k", d.key)
	writeOptional(&b, "e", d.email)
	writeOptional(&b, "p", d.phone)
	writeOptional(&b, "c", d.connection)
	writeBandwidth(&b, d.bandwidthType, d.bitrate)
	writeAttributes(&b, d.attributes)

	for _, m := range d.media {
		writeMedia(&b, m)
	}
	return b.String(), nil
}

func validateStrict(d SessionDescription) error {
	for i, m := range d.media {
		switch {
		case len(m.payloadTypes) != 1:
			return &ValidationError{Attribute: "payload", Media: i, Count: len(m.payloadTypes)}
		case len(m.rtpMaps) != 1:
			return &ValidationError{Attribute: "rtpMapAttributes", Media: i, Count: len(m.rtpMaps)}
		case len(m.fmtps) > 1:
			return &ValidationError{Attribute: "fmtpAttributes", Media: i, Count: len(m.fmtps)}
		}
	}
	return nil
}

func writeMedia(b *strings.Builder, m MediaDescription) {
	var line strings.Builder
	line.WriteString(m.mediaType)
	line.WriteByte(' ')
	line.WriteString(strconv.Itoa(m.port))
	line.WriteByte(' ')
	line.WriteString(m.protocol)
	for _, pt := range m.payloadTypes {
		line.WriteByte(' ')
		line.WriteString(strconv.Itoa(pt))
	}
	writeLine(b, "m", line.String())

	writeOptional(b, "i", m.title)
	writeOptional(b, "c", m.connection)
	writeBandwidth(b, m.bandwidthType, m.bitrate)
	writeOptional(b, "k", m.key)

	for _, r := range m.rtpMaps {
		writeLine(b, "a", AttrRtpMap+":"+r.String())
	}
	for _, f := range m.fmtps {
		writeLine(b, "a", AttrFmtp+":"+f.String())
	}
	writeAttributes(b, m.attributes)
}

func writeAttributes(b *strings.Builder, attrs map[string]string) {
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		if v := attrs[name]; v != "" {
			writeLine(b, "a", name+":"+v)
		} else {
			writeLine(b, "a", name)
		}
	}
}

func writeBandwidth(b *strings.Builder, typ string, bps int) {
	if bps == Unset {
		return
	}
	if typ == "" {
		typ = defaultBandwidthType
	}
	writeLine(b, "b", typ+":"+strconv.Itoa(bps/1000))
}

func writeOptional(b *strings.Builder, code, value string) {
	if value != "" {
		writeLine(b, code, value)
	}
}

// writeLine emits one line. The parser drops a single whitespace character
// after '=', so a value that starts with whitespace gets a separating space.
func writeLine(b *strings.Builder, code, value string) {
	b.WriteString(code)
	b.WriteByte('=')
	if value != "" && strings.ContainsRune(" \t\f\r\n", rune(value[0])) {
		b.WriteByte(' ')
	}
	b.WriteString(value)
	b.WriteString("\r\n")
}
