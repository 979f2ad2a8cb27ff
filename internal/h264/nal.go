package h264

import "fmt"

// NALType is the 5-bit nal_unit_type of an H.264 NAL unit (ITU-T H.264
// Table 7-1). Only the types a live player cares about are named; all other
// values classify as NALTypeUndefined.
type NALType uint8

// H.264 NAL unit types.
const (
	NALTypeUndefined           NALType = 0
	NALTypeCodedSlice          NALType = 1
	NALTypeDataPartitionA      NALType = 2
	NALTypeDataPartitionB      NALType = 3
	NALTypeDataPartitionC      NALType = 4
	NALTypeIDR                 NALType = 5
	NALTypeSEI                 NALType = 6
	NALTypeSPS                 NALType = 7
	NALTypePPS                 NALType = 8
	NALTypeAccessUnitDelimiter NALType = 9
	NALTypeEndOfSequence       NALType = 10
	NALTypeEndOfStream         NALType = 11
	NALTypeFilterData          NALType = 12
)

var nalTypeNames = [...]string{
	NALTypeUndefined:           "Undefined",
	NALTypeCodedSlice:          "CodedSlice",
	NALTypeDataPartitionA:      "DataPartitionA",
	NALTypeDataPartitionB:      "DataPartitionB",
	NALTypeDataPartitionC:      "DataPartitionC",
	NALTypeIDR:                 "IDR",
	NALTypeSEI:                 "SEI",
	NALTypeSPS:                 "SPS",
	NALTypePPS:                 "PPS",
	NALTypeAccessUnitDelimiter: "AccessUnitDelimiter",
	NALTypeEndOfSequence:       "EndOfSequence",
	NALTypeEndOfStream:         "EndOfStream",
	NALTypeFilterData:          "FilterData",
}

func (t NALType) String() string {
	if int(t) < len(nalTypeNames) {
		return nalTypeNames[t]
	}
	return fmt.Sprintf("NALType(%d)", uint8(t))
}

// IsSlice reports whether t carries picture data the reframer forwards
// (non-IDR coded slice or IDR slice).
func (t NALType) IsSlice() bool {
	return t == NALTypeCodedSlice || t == NALTypeIDR
}

// Classify extracts the NAL unit type from the header byte that follows a
// start code. Values outside the named range map to NALTypeUndefined.
func Classify(header byte) NALType {
	t := NALType(header & 0x1F)
	if t > NALTypeFilterData {
		return NALTypeUndefined
	}
	return t
}

// NALUnit is one NAL unit located in an Annex-B buffer. Raw and Payload
// borrow from the scanned buffer and must be copied before the buffer is
// reused.
type NALUnit struct {
	Type            NALType
	StartCodeLength int
	Raw             []byte // start code followed by the NAL unit
	Payload         []byte // NAL header byte first, start code excluded
}

// Units splits an Annex-B buffer into its NAL units in arrival order. Each
// payload runs to the next start code or to the end of the buffer. Bytes
// before the first start code and units with an empty payload are skipped.
// A buffer without any start code yields nil.
func Units(buf []byte) []NALUnit {
	var units []NALUnit

	sc := FindStartCode(buf, 0)
	for sc.Found() {
		next := FindStartCode(buf, sc.Last)
		end := len(buf)
		if next.Found() {
			end = next.First
		}
		if end > sc.Last {
			units = append(units, NALUnit{
				Type:            Classify(buf[sc.Last]),
				StartCodeLength: sc.Length,
				Raw:             buf[sc.First:end],
				Payload:         buf[sc.Last:end],
			})
		}
		sc = next
	}

	return units
}
