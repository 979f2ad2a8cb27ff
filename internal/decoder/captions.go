package decoder

import "github.com/zsiec/ccx"

// cea708ChannelBase offsets 708 service numbers past the four 608 channels
// and their two text channels.
const cea708ChannelBase = 6

// captionExtractor decodes CEA-608 pairs and CEA-708 DTVCC packets carried in
// SEI user data. It is independent of the rotation gate: every SEI unit is
// offered to it.
type captionExtractor struct {
	sink CaptionSink

	cea608Decs map[int]*ccx.CEA608Decoder
	cea708Svcs map[int]*ccx.CEA708Service
	dtvccBuf   []byte

	seiCount int64

	// Broadcasters transmit control codes twice; the repeat within two
	// SEI units of the original is dropped.
	lastCtrl      [2][2]byte
	lastWasCtrl   [2]bool
	lastCtrlIndex [2]int64
}

func newCaptionExtractor(sink CaptionSink) *captionExtractor {
	c := &captionExtractor{
		sink:       sink,
		cea608Decs: make(map[int]*ccx.CEA608Decoder, 4),
		cea708Svcs: make(map[int]*ccx.CEA708Service, 6),
	}
	for ch := 1; ch <= 4; ch++ {
		c.cea608Decs[ch] = ccx.NewCEA608Decoder()
	}
	for svc := 1; svc <= 6; svc++ {
		c.cea708Svcs[svc] = ccx.NewCEA708Service()
	}
	return c
}

// extract decodes the caption payload of one SEI unit (header byte first)
// and reports any completed caption text to the sink. It returns the number
// of caption frames emitted.
func (c *captionExtractor) extract(sei []byte, pts int64) int {
	if c == nil || c.sink == nil || len(sei) < 2 {
		return 0
	}
	c.seiCount++

	cd := ccx.ExtractCaptions(sei)
	if cd == nil {
		return 0
	}

	emitted := 0
	for _, pair := range cd.CC608Pairs {
		cc1, cc2 := pair.Data[0], pair.Data[1]

		f := pair.Field
		if cc1 >= 0x10 && cc1 <= 0x1F {
			cp := [2]byte{cc1, cc2}
			if c.lastWasCtrl[f] && c.lastCtrl[f] == cp && c.seiCount-c.lastCtrlIndex[f] <= 2 {
				c.lastWasCtrl[f] = false
				continue
			}
			c.lastCtrl[f] = cp
			c.lastWasCtrl[f] = true
			c.lastCtrlIndex[f] = c.seiCount
		} else {
			c.lastWasCtrl[f] = false
		}

		dec := c.cea608Decs[pair.Channel]
		if dec == nil {
			continue
		}
		if text := dec.Decode(cc1, cc2); text != "" {
			c.sink.OutputCaption(&ccx.CaptionFrame{
				PTS:     pts,
				Text:    text,
				Channel: pair.Channel,
				Regions: dec.StyledRegions(),
			})
			emitted++
		}
	}

	for _, t := range cd.DTVCC {
		if t.Start {
			emitted += c.drainDTVCC(pts)
			c.dtvccBuf = c.dtvccBuf[:0]
		}
		c.dtvccBuf = append(c.dtvccBuf, t.Data[0], t.Data[1])
	}
	return emitted
}

func (c *captionExtractor) drainDTVCC(pts int64) int {
	if len(c.dtvccBuf) < 1 {
		return 0
	}
	packetSize := ccx.DTVCCPacketSize(c.dtvccBuf[0])
	if len(c.dtvccBuf) < packetSize {
		return 0
	}

	emitted := 0
	for _, block := range ccx.ParseDTVCCPacket(c.dtvccBuf[:packetSize]) {
		svc := c.cea708Svcs[block.ServiceNum]
		if svc == nil || !svc.ProcessBlock(block.Data) {
			continue
		}
		if text := svc.DisplayText(); text != "" {
			c.sink.OutputCaption(&ccx.CaptionFrame{
				PTS:     pts,
				Text:    text,
				Channel: block.ServiceNum + cea708ChannelBase,
				Regions: svc.StyledRegions(),
			})
			emitted++
		}
	}
	c.dtvccBuf = c.dtvccBuf[packetSize:]
	return emitted
}
