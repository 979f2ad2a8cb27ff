package sdp

import (
	"encoding/json"
	"maps"
	"slices"
)

// MediaDescription is one frozen m= block. Accessors return copies.
type MediaDescription struct {
	mediaType     string
	port          int
	protocol      string
	payloadTypes  []int
	bitrate       int
	bandwidthType string
	title         string
	connection    string
	key           string
	attributes    map[string]string
	rtpMaps       []RtpMapAttribute
	fmtps         []FmtpAttribute
}

func (m MediaDescription) MediaType() string { return m.mediaType }
func (m MediaDescription) Port() int         { return m.port }
func (m MediaDescription) Protocol() string  { return m.protocol }

// PayloadTypes returns the payload types in wire order.
func (m MediaDescription) PayloadTypes() []int { return slices.Clone(m.payloadTypes) }

// Bitrate returns the media bandwidth in bits per second, or Unset.
func (m MediaDescription) Bitrate() int { return m.bitrate }

// BandwidthType returns the b= modifier ("AS", "CT", ...), or "" when no
// bandwidth was given.
func (m MediaDescription) BandwidthType() string { return m.bandwidthType }

func (m MediaDescription) Title() string      { return m.title }
func (m MediaDescription) Connection() string { return m.connection }
func (m MediaDescription) Key() string        { return m.key }

// Attributes returns a copy of the generic attributes. rtpmap and fmtp are
// not included.
func (m MediaDescription) Attributes() map[string]string { return maps.Clone(m.attributes) }

// Attribute returns one generic attribute value.
func (m MediaDescription) Attribute(name string) (string, bool) {
	v, ok := m.attributes[name]
	return v, ok
}

// RtpMaps returns the rtpmap attributes in wire order. There is always at
// least one.
func (m MediaDescription) RtpMaps() []RtpMapAttribute { return slices.Clone(m.rtpMaps) }

// Fmtps returns the fmtp attributes in wire order.
func (m MediaDescription) Fmtps() []FmtpAttribute { return slices.Clone(m.fmtps) }

// RtpMap returns the rtpmap for payloadType.
func (m MediaDescription) RtpMap(payloadType int) (RtpMapAttribute, bool) {
	for _, r := range m.rtpMaps {
		if r.payloadType == payloadType {
			return r, true
		}
	}
	return RtpMapAttribute{}, false
}

// Equal reports structural equality.
func (m MediaDescription) Equal(o MediaDescription) bool {
	return m.mediaType == o.mediaType &&
		m.port == o.port &&
		m.protocol == o.protocol &&
		slices.Equal(m.payloadTypes, o.payloadTypes) &&
		m.bitrate == o.bitrate &&
		m.bandwidthType == o.bandwidthType &&
		m.title == o.title &&
		m.connection == o.connection &&
		m.key == o.key &&
		maps.Equal(m.attributes, o.attributes) &&
		slices.EqualFunc(m.rtpMaps, o.rtpMaps, RtpMapAttribute.Equal) &&
		slices.EqualFunc(m.fmtps, o.fmtps, FmtpAttribute.Equal)
}

type rtpMapJSON struct {
	PayloadType        int    `json:"payloadType"`
	Encoding           string `json:"encoding"`
	ClockRate          int    `json:"clockRate"`
	EncodingParameters int    `json:"encodingParameters,omitempty"`
}

type fmtpJSON struct {
	Format     string            `json:"format"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type mediaJSON struct {
	MediaType     string            `json:"mediaType"`
	Port          int               `json:"port"`
	Protocol      string            `json:"protocol"`
	PayloadTypes  []int             `json:"payloadTypes"`
	Bitrate       int               `json:"bitrate,omitempty"`
	BandwidthType string            `json:"bandwidthType,omitempty"`
	Title         string            `json:"title,omitempty"`
	Connection    string            `json:"connection,omitempty"`
	Key           string            `json:"key,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	RtpMaps       []rtpMapJSON      `json:"rtpMaps"`
	Fmtps         []fmtpJSON        `json:"fmtps,omitempty"`
}

// MarshalJSON encodes the description for inspection tools. Unset numbers
// are omitted.
func (m MediaDescription) MarshalJSON() ([]byte, error) {
	out := mediaJSON{
		MediaType:     m.mediaType,
		Port:          m.port,
		Protocol:      m.protocol,
		PayloadTypes:  m.payloadTypes,
		BandwidthType: m.bandwidthType,
		Title:         m.title,
		Connection:    m.connection,
		Key:           m.key,
		Attributes:    m.attributes,
	}
	if m.bitrate != Unset {
		out.Bitrate = m.bitrate
	}
	for _, r := range m.rtpMaps {
		j := rtpMapJSON{PayloadType: r.payloadType, Encoding: r.encoding, ClockRate: r.clockRate}
		if r.encodingParameters != Unset {
			j.EncodingParameters = r.encodingParameters
		}
		out.RtpMaps = append(out.RtpMaps, j)
	}
	for _, f := range m.fmtps {
		out.Fmtps = append(out.Fmtps, fmtpJSON{Format: f.format, Parameters: f.params})
	}
	return json.Marshal(out)
}

// MediaBuilder accumulates one media block. It is consumed by Build.
type MediaBuilder struct {
	desc  MediaDescription
	built bool
}

// NewMediaBuilder starts a media block from the fields of its m= line.
func NewMediaBuilder(mediaType string, port int, protocol string, payloadTypes ...int) *MediaBuilder {
	return &MediaBuilder{desc: MediaDescription{
		mediaType:    mediaType,
		port:         port,
		protocol:     protocol,
		payloadTypes: slices.Clone(payloadTypes),
		bitrate:      Unset,
		attributes:   make(map[string]string),
	}}
}

// SetTitle sets the media title (i= inside a media block).
func (b *MediaBuilder) SetTitle(title string) *MediaBuilder {
	b.desc.title = title
	return b
}

func (b *MediaBuilder) SetConnection(connection string) *MediaBuilder {
	b.desc.connection = connection
	return b
}

func (b *MediaBuilder) SetKey(key string) *MediaBuilder {
	b.desc.key = key
	return b
}

// SetBitrate sets the bandwidth in bits per second under the given b=
// modifier. An empty modifier means "AS".
func (b *MediaBuilder) SetBitrate(bandwidthType string, bps int) *MediaBuilder {
	if bandwidthType == "" {
		bandwidthType = defaultBandwidthType
	}
	b.desc.bandwidthType = bandwidthType
	b.desc.bitrate = bps
	return b
}

// AddRtpMap appends an rtpmap attribute.
func (b *MediaBuilder) AddRtpMap(m RtpMapAttribute) *MediaBuilder {
	b.desc.rtpMaps = append(b.desc.rtpMaps, m)
	return b
}

// AddFmtp appends an fmtp attribute.
func (b *MediaBuilder) AddFmtp(f FmtpAttribute) *MediaBuilder {
	b.desc.fmtps = append(b.desc.fmtps, NewFmtp(f.format, f.params))
	return b
}

// AddAttribute records an a= line. rtpmap and fmtp values are parsed into
// their typed lists; anything else is stored by name, replacing an earlier
// value. A malformed rtpmap or fmtp value leaves the builder unchanged and
// returns an error wrapping ErrMalformedAttribute.
func (b *MediaBuilder) AddAttribute(name, value string) error {
	switch name {
	case AttrRtpMap:
		m, err := ParseRtpMap(value)
		if err != nil {
			return err
		}
		b.AddRtpMap(m)
	case AttrFmtp:
		f, err := ParseFmtp(value)
		if err != nil {
			return err
		}
		b.desc.fmtps = append(b.desc.fmtps, f)
	default:
		b.desc.attributes[name] = value
	}
	return nil
}

// Build freezes the media block. It fails with ErrNoRtpMap if no rtpmap
// attribute was added, and with ErrBuilderConsumed on a second call.
func (b *MediaBuilder) Build() (MediaDescription, error) {
	if b.built {
		return MediaDescription{}, ErrBuilderConsumed
	}
	if len(b.desc.rtpMaps) == 0 {
		return MediaDescription{}, ErrNoRtpMap
	}
	b.built = true
	desc := b.desc
	b.desc = MediaDescription{}
	return desc, nil
}
