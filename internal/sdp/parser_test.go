package sdp

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sdpText(sep string, lines ...string) string {
	return strings.Join(lines, sep) + sep
}

func TestParse_AudioSession(t *testing.T) {
	require := require.New(t)

	s, err := Parse(sdpText("\r\n",
		"v=0",
		"o=- 1 1 IN IP4 192.168.1.10",
		"s=Camera",
		"i=Front door",
		"u=rtsp://192.168.1.10/live",
		"e=ops@example.com",
		"p=+1 555 0100",
		"c=IN IP4 192.168.1.10",
		"b=AS:128",
		"t=0 0",
		"r=7d 1h 0 25h",
		"z=2882844526 -1h",
		"k=clear:secret",
		"a=tool:liveframe",
		"a=recvonly",
		"m=audio 0 RTP/AVP 97",
		"i=Microphone",
		"c=IN IP4 0.0.0.0",
		"b=AS:24",
		"k=prompt",
		"a=rtpmap:97 AMR-WB/16000",
		"a=fmtp:97 octet-align=1;mode-set=0,1,2",
		"a=control:trackID=1",
	))
	require.NoError(err)

	require.Equal("0", s.Version())
	require.Equal("- 1 1 IN IP4 192.168.1.10", s.Origin())
	require.Equal("Camera", s.SessionName())
	require.Equal("Front door", s.SessionInfo())
	require.Equal("rtsp://192.168.1.10/live", s.URI())
	require.Equal("ops@example.com", s.Email())
	require.Equal("+1 555 0100", s.Phone())
	require.Equal("IN IP4 192.168.1.10", s.Connection())
	require.Equal(128000, s.Bitrate())
	require.Equal("0 0", s.Timing())
	require.Equal("clear:secret", s.Key())
	require.Equal(map[string]string{"tool": "liveframe", "recvonly": ""}, s.Attributes())

	media := s.Media()
	require.Len(media, 1)
	m := media[0]
	require.Equal("audio", m.MediaType())
	require.Equal(0, m.Port())
	require.Equal("RTP/AVP", m.Protocol())
	require.Equal([]int{97}, m.PayloadTypes())
	require.Equal("Microphone", m.Title())
	require.Equal("IN IP4 0.0.0.0", m.Connection())
	require.Equal(24000, m.Bitrate())
	require.Equal("prompt", m.Key())
	require.Equal(map[string]string{"control": "trackID=1"}, m.Attributes())

	require.Len(m.RtpMaps(), 1)
	require.True(m.RtpMaps()[0].Equal(NewRtpMap(97, "AMR-WB", 16000, Unset)))
	require.Len(m.Fmtps(), 1)
	require.Equal(map[string]string{"octet-align": "1", "mode-set": "0,1,2"}, m.Fmtps()[0].Parameters())
}

func TestParse_MinimalMedia(t *testing.T) {
	require := require.New(t)

	s, err := Parse("m=audio 0 RTP/AVP 97\na=rtpmap:97 AMR-WB/16000\n")
	require.NoError(err)
	require.Len(s.Media(), 1)
	m := s.Media()[0]
	require.Equal([]int{97}, m.PayloadTypes())
	require.Len(m.RtpMaps(), 1)
	r := m.RtpMaps()[0]
	require.Equal(97, r.PayloadType())
	require.Equal("AMR-WB", r.Encoding())
	require.Equal(16000, r.ClockRate())
	require.Equal(Unset, r.EncodingParameters())
}

func TestParse_LineSeparator(t *testing.T) {
	require := require.New(t)

	lf := sdpText("\n", "v=0", "s=lf", "m=audio 0 RTP/AVP 0", "a=rtpmap:0 PCMU/8000")
	s, err := Parse(lf)
	require.NoError(err)
	require.Equal("lf", s.SessionName())

	// One CRLF anywhere switches the whole document to CRLF splitting, so
	// a bare LF stays inside its line and fails the line pattern.
	_, err = Parse("v=0\r\ns=one\ni=two\r\n")
	require.ErrorIs(err, ErrInvalidLine)
	var perr *ParseError
	require.ErrorAs(err, &perr)
	require.Equal(2, perr.Line)
}

func TestParse_MultipleMedia(t *testing.T) {
	require := require.New(t)

	s, err := Parse(sdpText("\r\n",
		"v=0",
		"i=session",
		"m=video 5006 RTP/AVP 96 97",
		"i=camera",
		"a=rtpmap:96 H264/90000",
		"a=rtpmap:97 H265/90000",
		"a=fmtp:96 packetization-mode=1",
		"m=audio 5004 RTP/AVP 8",
		"a=rtpmap:8 PCMA/8000",
		"a=rtpmap:8 PCMA/16000",
	))
	require.NoError(err)
	require.Equal("session", s.SessionInfo())

	media := s.Media()
	require.Len(media, 2)
	require.Equal("camera", media[0].Title())
	require.Equal([]int{96, 97}, media[0].PayloadTypes())
	require.Len(media[0].RtpMaps(), 2)
	require.Equal("", media[1].Title())
	require.Len(media[1].RtpMaps(), 2)
}

func TestParse_MediaLineCoercion(t *testing.T) {
	require := require.New(t)

	s, err := Parse("m=audio any RTP/AVP x 97\na=rtpmap:97 AMR-WB/16000\n")
	require.NoError(err)
	m := s.Media()[0]
	require.Equal(Unset, m.Port())
	require.Equal([]int{0, 97}, m.PayloadTypes())
}

func TestParse_Bandwidth(t *testing.T) {
	require := require.New(t)

	s, err := Parse("b=CT: 64\n")
	require.NoError(err)
	require.Equal(64000, s.Bitrate())
	require.Equal("CT", s.BandwidthType())

	s, err = Parse("b=AS:lots\n")
	require.NoError(err)
	require.Equal(0, s.Bitrate())

	s, err = Parse("s=none\n")
	require.NoError(err)
	require.Equal(Unset, s.Bitrate())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
		want error
	}{
		{"bad line", "v=0\nnot sdp\n", 2, ErrInvalidLine},
		{"upper case type", "V=0\n", 1, ErrInvalidLine},
		{"empty value", "v=0\ns=\n", 2, ErrInvalidLine},
		{"version", "v=1\n", 1, ErrUnsupportedVersion},
		{"attribute", "a=:value\n", 1, ErrInvalidAttribute},
		{"attribute name", "a=bad name\n", 1, ErrInvalidAttribute},
		{"short media line", "m=audio 0 RTP/AVP\n", 1, ErrInvalidMediaLine},
		{"bandwidth", "b=128\n", 1, ErrInvalidBandwidth},
		{"no rtpmap at end", "v=0\nm=audio 0 RTP/AVP 97\na=sendonly\n", 2, ErrNoRtpMap},
		{"no rtpmap before next media", "m=audio 0 RTP/AVP 97\nm=video 0 RTP/AVP 96\na=rtpmap:96 H264/90000\n", 1, ErrNoRtpMap},
		{"malformed rtpmap", "m=audio 0 RTP/AVP 97\na=rtpmap:97\n", 2, ErrMalformedAttribute},
		{"malformed fmtp", "m=audio 0 RTP/AVP 97\na=rtpmap:97 AMR-WB/16000\na=fmtp:97\n", 3, ErrMalformedAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			_, err := Parse(tt.text)
			require.ErrorIs(err, tt.want)

			var perr *ParseError
			require.True(errors.As(err, &perr))
			require.Equal(tt.line, perr.Line)
		})
	}
}

func TestParse_SessionLevelRtpMapIsGeneric(t *testing.T) {
	require := require.New(t)

	s, err := Parse("v=0\na=rtpmap:not parsed here\n")
	require.NoError(err)
	v, ok := s.Attribute("rtpmap")
	require.True(ok)
	require.Equal("not parsed here", v)
}

func TestParser_Lenient(t *testing.T) {
	require := require.New(t)

	var logs bytes.Buffer
	p := Parser{
		Lenient: true,
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	}
	s, err := p.Parse(sdpText("\n",
		"v=0",
		"m=audio 0 RTP/AVP 97",
		"a=rtpmap:97",
		"a=rtpmap:97 AMR-WB/16000",
		"a=fmtp:97 octet-align",
		"a=fmtp:97 octet-align=1",
	))
	require.NoError(err)

	m := s.Media()[0]
	require.Len(m.RtpMaps(), 1)
	require.Len(m.Fmtps(), 1)
	require.Contains(logs.String(), "skipping malformed attribute")

	// Lenient parsing still needs one valid rtpmap per media block.
	_, err = p.Parse("m=audio 0 RTP/AVP 97\na=rtpmap:97\n")
	require.ErrorIs(err, ErrNoRtpMap)
}

func TestParse_URIKeptVerbatim(t *testing.T) {
	for _, uri := range []string{"http://host/%zz", ":nocolon", "rtsp://[::1"} {
		require := require.New(t)

		s, err := Parse("v=0\r\ns=cam\r\nu=" + uri + "\r\nm=video 0 RTP/AVP 96\r\na=rtpmap:96 H264/90000\r\n")
		require.NoError(err)
		require.Equal(uri, s.URI())

		out, err := Unparse(s, true)
		require.NoError(err)
		require.Contains(out, "u="+uri+"\r\n")
	}
}
