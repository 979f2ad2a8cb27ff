// Package decoder turns the raw buffers of one live stream into frames a
// platform decoder can consume.
//
// A stream is handled by exactly one [BitstreamDecoder], selected by
// [media.Kind] when the stream is created: [VideoDecoder] for Annex-B H.264
// and [AudioDecoder] for pre-framed audio. A VideoDecoder owns the stream's
// [ParameterSetCache] and [RotationState]; it emits a slice only once both
// parameter sets produced a format description and the first SEI unit has
// been seen. Slices that arrive earlier are dropped, not buffered.
//
// Decoders do no locking. Callers serialize Feed calls per stream; separate
// streams use separate decoders and share nothing.
package decoder
