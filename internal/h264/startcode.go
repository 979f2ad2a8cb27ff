package h264

// StartCode describes an Annex-B start code located in a buffer. First is the
// index of the leading zero byte and Last = First + Length is the index of
// the NAL header byte that follows it. The zero value means no start code was
// found.
type StartCode struct {
	First  int
	Last   int
	Length int
}

// Found reports whether the scan located a start code.
func (sc StartCode) Found() bool {
	return sc.Length != 0
}

// FindStartCode scans buf forward from offset for a 4-byte (00 00 00 01) or
// 3-byte (00 00 01) start code and returns the first match. At each position
// the 4-byte form is tried before the 3-byte form, so zero bytes preceding a
// 3-byte code are absorbed into it. Short buffers and out-of-range offsets
// yield the zero StartCode rather than an error.
func FindStartCode(buf []byte, offset int) StartCode {
	if offset < 0 {
		return StartCode{}
	}
	n := len(buf)
	for i := offset; i+2 < n; i++ {
		if buf[i] != 0 || buf[i+1] != 0 {
			continue
		}
		if i+3 < n && buf[i+2] == 0 && buf[i+3] == 1 {
			return StartCode{First: i, Last: i + 4, Length: 4}
		}
		if buf[i+2] == 1 {
			return StartCode{First: i, Last: i + 3, Length: 3}
		}
	}
	return StartCode{}
}

// HasStartCode reports whether buf begins with a start code.
func HasStartCode(buf []byte) bool {
	sc := FindStartCode(buf, 0)
	return sc.Found() && sc.First == 0
}
