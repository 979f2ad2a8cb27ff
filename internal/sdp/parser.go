package sdp

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	linePattern      = regexp.MustCompile(`^([a-z])=\s?(.+)$`)
	attributePattern = regexp.MustCompile(`^([0-9A-Za-z-]+)(?::(.*))?$`)
)

// Parser parses SDP text. The zero value is a strict parser that fails on
// any malformed rtpmap or fmtp value.
type Parser struct {
	// Lenient skips malformed rtpmap and fmtp values instead of failing
	// the whole parse. Skipped values are logged at warn level.
	Lenient bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Parse parses text with the zero Parser.
func Parse(text string) (SessionDescription, error) {
	return Parser{}.Parse(text)
}

// Parse parses a full session description. Lines are split on CRLF if the
// text contains CRLF anywhere, otherwise on LF. Errors are *ParseError and
// no partial description is returned.
func (p Parser) Parse(text string) (SessionDescription, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "sdp-parser")

	sep := "\n"
	if strings.Contains(text, "\r\n") {
		sep = "\r\n"
	}

	session := NewSessionBuilder()
	var (
		media     *MediaBuilder
		mediaLine int
		mediaText string
	)

	finalizeMedia := func() error {
		if media == nil {
			return nil
		}
		m, err := media.Build()
		if err != nil {
			return &ParseError{Line: mediaLine, Text: mediaText, Err: err}
		}
		session.AddMedia(m)
		media = nil
		return nil
	}

	for i, line := range strings.Split(text, sep) {
		if line == "" {
			continue
		}
		lineNo := i + 1
		fail := func(err error) (SessionDescription, error) {
			return SessionDescription{}, &ParseError{Line: lineNo, Text: line, Err: err}
		}

		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			return fail(ErrInvalidLine)
		}
		code, value := match[1], match[2]

		switch code {
		case "v":
			if value != Version {
				return fail(ErrUnsupportedVersion)
			}
		case "o":
			session.SetOrigin(value)
		case "s":
			session.SetSessionName(value)
		case "i":
			if media == nil {
				session.SetSessionInfo(value)
			} else {
				media.SetTitle(value)
			}
		case "u":
			session.SetURI(value)
		case "e":
			session.SetEmail(value)
		case "p":
			session.SetPhone(value)
		case "c":
			if media == nil {
				session.SetConnection(value)
			} else {
				media.SetConnection(value)
			}
		case "b":
			typ, bps, err := parseBandwidth(value)
			if err != nil {
				return fail(err)
			}
			if media == nil {
				session.SetBitrate(typ, bps)
			} else {
				media.SetBitrate(typ, bps)
			}
		case "t":
			session.SetTiming(value)
		case "k":
			if media == nil {
				session.SetKey(value)
			} else {
				media.SetKey(value)
			}
		case "a":
			attr := attributePattern.FindStringSubmatch(value)
			if attr == nil {
				return fail(ErrInvalidAttribute)
			}
			name, attrValue := attr[1], attr[2]
			if media == nil {
				session.AddAttribute(name, attrValue)
				continue
			}
			if err := media.AddAttribute(name, attrValue); err != nil {
				if !p.Lenient {
					return fail(err)
				}
				log.Warn("skipping malformed attribute", "line", lineNo, "attribute", name, "error", err)
			}
		case "m":
			if err := finalizeMedia(); err != nil {
				return SessionDescription{}, err
			}
			b, err := parseMediaLine(value)
			if err != nil {
				return fail(err)
			}
			media, mediaLine, mediaText = b, lineNo, line
		default:
			// r=, z= and unknown types carry nothing the player uses.
		}
	}

	if err := finalizeMedia(); err != nil {
		return SessionDescription{}, err
	}
	return session.Build()
}

// parseBandwidth converts "<type>:<kbps>" to bits per second. A non-numeric
// rate yields 0.
func parseBandwidth(value string) (string, int, error) {
	typ, rate, ok := strings.Cut(value, ":")
	if !ok {
		return "", 0, ErrInvalidBandwidth
	}
	kbps, err := strconv.Atoi(strings.TrimSpace(rate))
	if err != nil {
		kbps = 0
	}
	return typ, kbps * 1000, nil
}

// parseMediaLine parses "<type> <port> <proto> <pt> [<pt>...]". An invalid
// port becomes Unset and an invalid payload type becomes 0.
func parseMediaLine(value string) (*MediaBuilder, error) {
	fields := strings.Split(value, " ")
	if len(fields) < 4 {
		return nil, ErrInvalidMediaLine
	}
	payloadTypes := make([]int, 0, len(fields)-3)
	for _, f := range fields[3:] {
		payloadTypes = append(payloadTypes, atoiOr(f, 0))
	}
	return NewMediaBuilder(fields[0], atoiOr(fields[1], Unset), fields[2], payloadTypes...), nil
}
