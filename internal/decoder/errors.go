package decoder

import "errors"

// Sentinel errors returned by decoders. Callers distinguish them with
// errors.Is.
var (
	ErrFormatDescription   = errors.New("decoder: format description build failed")
	ErrUnknownKind         = errors.New("decoder: unknown stream kind")
	ErrUnsupportedEncoding = errors.New("decoder: unsupported audio encoding")
)
