// Package h264 scans Annex-B H.264 byte streams. It locates 3- and 4-byte
// start codes, classifies NAL units by their header byte, and decodes the
// proprietary rotation record some cameras carry in their first SEI unit.
//
// The central entry points are [FindStartCode], [Classify], and [Units].
// Nothing in this package allocates beyond the returned unit slice; payloads
// borrow from the scanned buffer.
package h264
