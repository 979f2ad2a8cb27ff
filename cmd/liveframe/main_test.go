package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

var (
	testSPS720p = []byte{
		0x67, 0x64, 0x00, 0x1f, 0xac, 0xd9, 0x40, 0x50,
		0x05, 0xbb, 0xff, 0x00, 0x03, 0x00, 0x04, 0x6a,
		0x02, 0x02, 0x02, 0x80, 0x00, 0x01, 0xf4, 0x80,
		0x00, 0x5d, 0xc0, 0x07, 0x8c, 0x18, 0xcb,
	}
	testPPS   = []byte{0x68, 0xeb, 0xe3, 0xcb, 0x22, 0xc0}
	testIDR   = []byte{0x65, 0x88, 0x84, 0x21, 0xa0}
	testSlice = []byte{0x41, 0x9a, 0x22, 0x4c}
	// SEI carrying a rotation record with a quarter-turn angle.
	testRotationSEI = []byte{0x06, 47, 0x40, 0x00, 0x80}
)

const testSession = "v=0\r\n" +
	"o=- 1 1 IN IP4 10.0.0.1\r\n" +
	"s=Camera\r\n" +
	"t=0 0\r\n" +
	"m=video 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=fmtp:96 packetization-mode=1\r\n"

func annexB(units ...[]byte) []byte {
	var buf []byte
	for _, u := range units {
		buf = append(buf, 0x00, 0x00, 0x00, 0x01)
		buf = append(buf, u...)
	}
	return buf
}

func lengthPrefixed(units ...[]byte) []byte {
	var buf []byte
	for _, u := range units {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(u)))
		buf = append(buf, u...)
	}
	return buf
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{stdout: &stdout, stderr: &stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSDPParse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cam.sdp", []byte(testSession))

	out, err := run(t, "sdp", "parse", path)
	require.NoError(t, err)

	var doc struct {
		SessionName string `json:"sessionName"`
		Media       []struct {
			MediaType string `json:"mediaType"`
			RtpMaps   []struct {
				Encoding  string `json:"encoding"`
				ClockRate int    `json:"clockRate"`
			} `json:"rtpMaps"`
		} `json:"media"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Equal(t, "Camera", doc.SessionName)
	require.Len(t, doc.Media, 1)
	require.Equal(t, "video", doc.Media[0].MediaType)
	require.Equal(t, "H264", doc.Media[0].RtpMaps[0].Encoding)
	require.Equal(t, 90000, doc.Media[0].RtpMaps[0].ClockRate)
}

func TestSDPParseMissingFile(t *testing.T) {
	_, err := run(t, "sdp", "parse", filepath.Join(t.TempDir(), "absent.sdp"))
	require.Error(t, err)
}

func TestSDPFormat(t *testing.T) {
	lf := "v=0\no=- 1 1 IN IP4 10.0.0.1\ns=Camera\nt=0 0\nm=video 0 RTP/AVP 96\na=rtpmap:96 H264/90000\na=fmtp:96 packetization-mode=1\n"
	path := writeFile(t, t.TempDir(), "cam.sdp", []byte(lf))

	out, err := run(t, "sdp", "format", path)
	require.NoError(t, err)
	require.Equal(t, testSession, out)
}

func TestSDPFormatStrict(t *testing.T) {
	text := testSession + "a=rtpmap:97 H265/90000\r\n"
	path := writeFile(t, t.TempDir(), "cam.sdp", []byte(text))

	_, err := run(t, "sdp", "format", path)
	require.NoError(t, err)

	_, err = run(t, "sdp", "format", "--strict", path)
	require.Error(t, err)
}

func TestSDPLenient(t *testing.T) {
	text := testSession + "a=rtpmap:bogus\r\n"
	path := writeFile(t, t.TempDir(), "cam.sdp", []byte(text))

	_, err := run(t, "sdp", "parse", path)
	require.Error(t, err)

	_, err = run(t, "sdp", "parse", "--lenient", path)
	require.NoError(t, err)
}

func TestReframeAnnexB(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	input := annexB(testSPS720p, testPPS, testIDR, testRotationSEI, testIDR, testSlice)
	path := writeFile(t, dir, "clip.h264", input)

	out, err := run(t, "reframe", "--out-dir", outDir, path)
	require.NoError(t, err)
	require.Contains(t, out, "2 frames, 1 dropped, rotation 270")

	got, err := os.ReadFile(filepath.Join(outDir, "clip.avcc"))
	require.NoError(t, err)
	require.Equal(t, lengthPrefixed(testIDR, testSlice), got)
}

func TestReframeMultipleInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.h264", annexB(testSPS720p, testPPS, testRotationSEI, testIDR))
	b := writeFile(t, dir, "b.h264", annexB(testSPS720p, testPPS, testRotationSEI, testSlice, testSlice))

	_, err := run(t, "reframe", "--out-dir", dir, a, b)
	require.NoError(t, err)

	gotA, err := os.ReadFile(filepath.Join(dir, "a.avcc"))
	require.NoError(t, err)
	require.Equal(t, lengthPrefixed(testIDR), gotA)

	gotB, err := os.ReadFile(filepath.Join(dir, "b.avcc"))
	require.NoError(t, err)
	require.Equal(t, lengthPrefixed(testSlice, testSlice), gotB)
}

func TestReframeMissingInput(t *testing.T) {
	_, err := run(t, "reframe", "--out-dir", t.TempDir(), filepath.Join(t.TempDir(), "absent.h264"))
	require.Error(t, err)
}

func TestReframeUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clip.h264", annexB(testIDR))
	_, err := run(t, "reframe", "--format", "mkv", "--out-dir", dir, path)
	require.Error(t, err)
}

func TestReframeRTPAudio(t *testing.T) {
	dir := t.TempDir()

	var dump bytes.Buffer
	dump.WriteString("# codec=audio/PCMA\n# clockRate=8000\n")
	payloads := [][]byte{{0xd5, 0xd5, 0xd4}, {0x55, 0x54}}
	for i, p := range payloads {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    8,
				SequenceNumber: uint16(i),
				Timestamp:      uint32(160 * i),
				SSRC:           1,
			},
			Payload: p,
		}
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		dump.Write(binary.BigEndian.AppendUint32(nil, uint32(len(raw))))
		dump.Write(raw)
	}
	path := writeFile(t, dir, "mic.rtp", dump.Bytes())

	out, err := run(t, "reframe", "--format", "rtp", "--out-dir", dir, path)
	require.NoError(t, err)
	require.Contains(t, out, "2 frames")

	got, err := os.ReadFile(filepath.Join(dir, "mic.raw"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xd5, 0xd5, 0xd4, 0x55, 0x54}, got)
}

func TestReframeRTPVideo(t *testing.T) {
	dir := t.TempDir()

	var dump bytes.Buffer
	dump.WriteString("# codec=video/H264\n# clockRate=90000\n")
	for i, unit := range [][]byte{testSPS720p, testPPS, testRotationSEI, testIDR} {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    96,
				SequenceNumber: uint16(i),
				Timestamp:      3000,
				SSRC:           1,
			},
			Payload: unit,
		}
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		dump.Write(binary.BigEndian.AppendUint32(nil, uint32(len(raw))))
		dump.Write(raw)
	}
	path := writeFile(t, dir, "cam.rtp", dump.Bytes())

	_, err := run(t, "reframe", "--format", "rtp", "--out-dir", dir, path)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "cam.avcc"))
	require.NoError(t, err)
	require.Equal(t, lengthPrefixed(testIDR), got)
}

func TestReframeFMP4(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clip.h264", annexB(testSPS720p, testPPS, testRotationSEI, testIDR, testSlice))

	out, err := run(t, "reframe", "--container", "fmp4", "--out-dir", dir, path)
	require.NoError(t, err)
	require.Contains(t, out, "clip.fmp4")

	got, err := os.ReadFile(filepath.Join(dir, "clip.fmp4"))
	require.NoError(t, err)
	require.Greater(t, len(got), 8)
	require.Equal(t, "ftyp", string(got[4:8]))
}
