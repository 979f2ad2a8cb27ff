package sdp

import (
	"testing"

	psdp "github.com/pion/sdp/v3"
	"github.com/stretchr/testify/require"
)

// Sessions limited to v o s t a m keep both libraries' line ordering rules
// satisfied.
const interopSession = "v=0\r\n" +
	"o=- 4858251974351650128 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=audio 9 RTP/AVP 97\r\n" +
	"a=rtpmap:97 AMR-WB/16000/1\r\n" +
	"a=fmtp:97 mode-set=0,1,2;octet-align=1\r\n" +
	"a=sendrecv\r\n"

func TestInterop_PionReadsUnparse(t *testing.T) {
	require := require.New(t)

	s, err := Parse(interopSession)
	require.NoError(err)
	out, err := Unparse(s, true)
	require.NoError(err)

	var ref psdp.SessionDescription
	require.NoError(ref.Unmarshal([]byte(out)))
	require.Equal("-", string(ref.SessionName))
	require.Len(ref.MediaDescriptions, 1)

	md := ref.MediaDescriptions[0]
	require.Equal("audio", md.MediaName.Media)
	require.Equal(9, md.MediaName.Port.Value)
	require.Equal([]string{"97"}, md.MediaName.Formats)

	codec, err := ref.GetCodecForPayloadType(97)
	require.NoError(err)
	require.Equal("AMR-WB", codec.Name)
	require.Equal(uint32(16000), codec.ClockRate)
	require.Equal("1", codec.EncodingParameters)

	_, ok := md.Attribute("sendrecv")
	require.True(ok)
}

func TestInterop_ParsePionMarshal(t *testing.T) {
	require := require.New(t)

	var ref psdp.SessionDescription
	require.NoError(ref.Unmarshal([]byte(interopSession)))
	text, err := ref.Marshal()
	require.NoError(err)

	s, err := Parse(string(text))
	require.NoError(err)

	m := s.Media()[0]
	require.Equal(9, m.Port())
	require.Equal([]int{97}, m.PayloadTypes())
	require.True(m.RtpMaps()[0].Equal(NewRtpMap(97, "AMR-WB", 16000, 1)))

	v, ok := s.Attribute("group")
	require.True(ok)
	require.Equal("BUNDLE 0", v)

	orig, err := Parse(interopSession)
	require.NoError(err)
	require.True(orig.Equal(s))
}
