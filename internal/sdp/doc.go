// Package sdp parses and serializes Session Description Protocol text
// (RFC 4566) into an immutable SessionDescription tree.
//
// Parsing is single pass and line oriented. Each media block is collected by
// a MediaBuilder, and the whole session by a SessionBuilder; both are
// consumed by Build, after which the resulting descriptions are read-only.
// Unparse writes a description back to CRLF-terminated text and, in strict
// mode, enforces the single payload type, single rtpmap and optional single
// fmtp shape a live player negotiates.
//
// Only the rtpmap and fmtp attributes are interpreted. Every other attribute
// is kept as an opaque name/value pair.
package sdp
