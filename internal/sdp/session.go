package sdp

import (
	"encoding/json"
	"maps"
	"slices"
)

// Version is the only SDP protocol version accepted.
const Version = "0"

const defaultBandwidthType = "AS"

// SessionDescription is a frozen SDP session. Optional text fields are ""
// when absent. Accessors return copies.
type SessionDescription struct {
	origin        string
	sessionName   string
	timing        string
	uri           string
	sessionInfo   string
	email         string
	phone         string
	connection    string
	key           string
	bitrate       int
	bandwidthType string
	attributes    map[string]string
	media         []MediaDescription
}

// Version always returns "0".
func (s SessionDescription) Version() string     { return Version }
func (s SessionDescription) Origin() string      { return s.origin }
func (s SessionDescription) SessionName() string { return s.sessionName }
func (s SessionDescription) Timing() string      { return s.timing }
func (s SessionDescription) URI() string         { return s.uri }
func (s SessionDescription) SessionInfo() string { return s.sessionInfo }
func (s SessionDescription) Email() string       { return s.email }
func (s SessionDescription) Phone() string       { return s.phone }
func (s SessionDescription) Connection() string  { return s.connection }
func (s SessionDescription) Key() string         { return s.key }

// Bitrate returns the session bandwidth in bits per second, or Unset.
func (s SessionDescription) Bitrate() int { return s.bitrate }

// BandwidthType returns the b= modifier, or "" when no bandwidth was given.
func (s SessionDescription) BandwidthType() string { return s.bandwidthType }

// Attributes returns a copy of the session-level attributes.
func (s SessionDescription) Attributes() map[string]string { return maps.Clone(s.attributes) }

// Attribute returns one session-level attribute value.
func (s SessionDescription) Attribute(name string) (string, bool) {
	v, ok := s.attributes[name]
	return v, ok
}

// Media returns the media blocks in wire order.
func (s SessionDescription) Media() []MediaDescription { return slices.Clone(s.media) }

// Equal reports structural equality, including every media block.
func (s SessionDescription) Equal(o SessionDescription) bool {
	return s.origin == o.origin &&
		s.sessionName == o.sessionName &&
		s.timing == o.timing &&
		s.uri == o.uri &&
		s.sessionInfo == o.sessionInfo &&
		s.email == o.email &&
		s.phone == o.phone &&
		s.connection == o.connection &&
		s.key == o.key &&
		s.bitrate == o.bitrate &&
		s.bandwidthType == o.bandwidthType &&
		maps.Equal(s.attributes, o.attributes) &&
		slices.EqualFunc(s.media, o.media, MediaDescription.Equal)
}

type sessionJSON struct {
	Version       string             `json:"version"`
	Origin        string             `json:"origin,omitempty"`
	SessionName   string             `json:"sessionName,omitempty"`
	Timing        string             `json:"timing,omitempty"`
	URI           string             `json:"uri,omitempty"`
	SessionInfo   string             `json:"sessionInfo,omitempty"`
	Email         string             `json:"email,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Connection    string             `json:"connection,omitempty"`
	Key           string             `json:"key,omitempty"`
	Bitrate       int                `json:"bitrate,omitempty"`
	BandwidthType string             `json:"bandwidthType,omitempty"`
	Attributes    map[string]string  `json:"attributes,omitempty"`
	Media         []MediaDescription `json:"media"`
}

// MarshalJSON encodes the session for inspection tools.
func (s SessionDescription) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		Version:       Version,
		Origin:        s.origin,
		SessionName:   s.sessionName,
		Timing:        s.timing,
		URI:           s.uri,
		SessionInfo:   s.sessionInfo,
		Email:         s.email,
		Phone:         s.phone,
		Connection:    s.connection,
		Key:           s.key,
		BandwidthType: s.bandwidthType,
		Attributes:    s.attributes,
		Media:         s.media,
	}
	if s.bitrate != Unset {
		out.Bitrate = s.bitrate
	}
	if out.Media == nil {
		out.Media = []MediaDescription{}
	}
	return json.Marshal(out)
}

// SessionBuilder accumulates a session. It is consumed by Build.
type SessionBuilder struct {
	desc  SessionDescription
	built bool
}

// NewSessionBuilder returns an empty builder with no bandwidth set.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{desc: SessionDescription{
		bitrate:    Unset,
		attributes: make(map[string]string),
	}}
}

func (b *SessionBuilder) SetOrigin(origin string) *SessionBuilder {
	b.desc.origin = origin
	return b
}

func (b *SessionBuilder) SetSessionName(name string) *SessionBuilder {
	b.desc.sessionName = name
	return b
}

func (b *SessionBuilder) SetTiming(timing string) *SessionBuilder {
	b.desc.timing = timing
	return b
}

// SetURI sets the session URI. The value is stored as given.
func (b *SessionBuilder) SetURI(uri string) *SessionBuilder {
	b.desc.uri = uri
	return b
}

func (b *SessionBuilder) SetSessionInfo(info string) *SessionBuilder {
	b.desc.sessionInfo = info
	return b
}

func (b *SessionBuilder) SetEmail(email string) *SessionBuilder {
	b.desc.email = email
	return b
}

func (b *SessionBuilder) SetPhone(phone string) *SessionBuilder {
	b.desc.phone = phone
	return b
}

func (b *SessionBuilder) SetConnection(connection string) *SessionBuilder {
	b.desc.connection = connection
	return b
}

func (b *SessionBuilder) SetKey(key string) *SessionBuilder {
	b.desc.key = key
	return b
}

// SetBitrate sets the bandwidth in bits per second under the given b=
// modifier. An empty modifier means "AS".
func (b *SessionBuilder) SetBitrate(bandwidthType string, bps int) *SessionBuilder {
	if bandwidthType == "" {
		bandwidthType = defaultBandwidthType
	}
	b.desc.bandwidthType = bandwidthType
	b.desc.bitrate = bps
	return b
}

// AddAttribute records a session-level a= line, replacing an earlier value
// of the same name. rtpmap and fmtp are not interpreted at session level.
func (b *SessionBuilder) AddAttribute(name, value string) *SessionBuilder {
	b.desc.attributes[name] = value
	return b
}

// AddMedia appends a built media block.
func (b *SessionBuilder) AddMedia(m MediaDescription) *SessionBuilder {
	b.desc.media = append(b.desc.media, m)
	return b
}

// Build freezes the session. A second call returns ErrBuilderConsumed.
func (b *SessionBuilder) Build() (SessionDescription, error) {
	if b.built {
		return SessionDescription{}, ErrBuilderConsumed
	}
	b.built = true
	desc := b.desc
	b.desc = SessionDescription{}
	return desc, nil
}
