package ipts

import (
	"fmt"
	"math"
)

// Parser splits IPTS report buffers into typed events.
//
// It is stateless with regard to stylus semantics; decoding DFT windows
// into stylus state is the job of the dft package. The only state kept
// across calls are the most recent dimensions and timestamp reports,
// because the firmware describes heatmaps and DFT windows through the
// report that precedes them.
type Parser struct {
	// OnStylus is invoked for every decoded legacy stylus report.
	OnStylus func(StylusData)

	// OnHeatmap is invoked for every capacitive heatmap. The heatmap
	// borrows from the input buffer and must not be retained.
	OnHeatmap func(*Heatmap)

	// OnDft is invoked for every DFT window. The window must not be
	// retained past the callback.
	OnDft func(*DftWindow)

	// OnMetadata is invoked when a metadata report was parsed.
	OnMetadata func(Metadata)

	dim  Dimensions
	time Timestamp
}

const (
	hidHeaderSize  = 3
	hidFrameSize   = 7
	rawHeaderSize  = 12
	rawFrameSize   = 16
	reportSize     = 4
	stylusDataSize = 16
)

// Parse processes an IPTS touch data buffer with the regular three byte
// HID header (report ID and timestamp).
func (p *Parser) Parse(data []byte) error {
	return p.ParseWithHeader(data, hidHeaderSize)
}

// ParseWithHeader processes an IPTS buffer whose header is header bytes
// long. Feature report buffers have a single byte header.
func (p *Parser) ParseWithHeader(data []byte, header int) error {
	r := NewReader(data)
	if err := r.Skip(header); err != nil {
		return err
	}
	return p.parseFrame(r)
}

type hidFrame struct {
	size uint32
	typ  uint8
}

func readHidFrame(r *Reader) (hidFrame, error) {
	var f hidFrame
	var err error

	if f.size, err = r.U32(); err != nil {
		return f, err
	}
	if err = r.Skip(1); err != nil {
		return f, err
	}
	if f.typ, err = r.U8(); err != nil {
		return f, err
	}
	if err = r.Skip(1); err != nil {
		return f, err
	}
	if f.size < hidFrameSize {
		f.size = hidFrameSize
	}
	return f, nil
}

// parseFrame handles the root HID frame. Newer devices nest more HID
// frames inside of it; older devices wrap the raw GuC data stream in a
// single frame with a custom type.
func (p *Parser) parseFrame(r *Reader) error {
	frame, err := readHidFrame(r)
	if err != nil {
		return err
	}

	sub, err := r.Sub(int(frame.size) - hidFrameSize)
	if err != nil {
		return err
	}

	switch frame.typ {
	case HidFrameTypeRaw:
		return p.parseRaw(sub)
	case HidFrameTypeHid:
		return p.parseHid(sub)
	default:
		return nil
	}
}

// parseRaw handles the legacy data path: a counter header followed by a
// list of sized frames, each containing a report list.
func (p *Parser) parseRaw(r *Reader) error {
	if err := r.Skip(4); err != nil { // counter
		return err
	}
	frames, err := r.U32()
	if err != nil {
		return err
	}
	if err := r.Skip(4); err != nil { // reserved
		return err
	}

	for i := uint32(0); i < frames; i++ {
		if err := r.Skip(2); err != nil { // index
			return err
		}
		typ, err := r.U16()
		if err != nil {
			return err
		}
		size, err := r.U32()
		if err != nil {
			return err
		}
		if err := r.Skip(8); err != nil { // reserved
			return err
		}

		sub, err := r.Sub(int(size))
		if err != nil {
			return err
		}

		switch typ {
		case RawFrameTypeStylus, RawFrameTypeHeatmap:
			if err := p.parseReports(sub); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseHid handles the HID-native data path: a chain of typed HID frames.
func (p *Parser) parseHid(r *Reader) error {
	for r.Remaining() > 0 {
		frame, err := readHidFrame(r)
		if err != nil {
			return err
		}

		sub, err := r.Sub(int(frame.size) - hidFrameSize)
		if err != nil {
			return err
		}

		switch frame.typ {
		case HidFrameTypeHeatmap:
			if err := p.parseHeatmapFrame(sub); err != nil {
				return err
			}
		case HidFrameTypeReports:
			// About once per second the SP7 sends a report frame
			// that is four bytes too short to contain anything.
			if r.Remaining() == 4 {
				return nil
			}
			if err := p.parseReports(sub); err != nil {
				return err
			}
		case HidFrameTypeMetadata:
			if err := p.parseMetadata(sub); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Parser) parseMetadata(r *Reader) error {
	var m Metadata
	var err error

	if m.Size.Rows, err = r.U32(); err != nil {
		return err
	}
	if m.Size.Columns, err = r.U32(); err != nil {
		return err
	}
	if m.Size.Width, err = r.U32(); err != nil {
		return err
	}
	if m.Size.Height, err = r.U32(); err != nil {
		return err
	}
	if m.UnknownByte, err = r.U8(); err != nil {
		return err
	}

	t := []*float32{
		&m.Transform.XX, &m.Transform.YX, &m.Transform.TX,
		&m.Transform.XY, &m.Transform.YY, &m.Transform.TY,
	}
	for _, f := range t {
		if *f, err = r.F32(); err != nil {
			return err
		}
	}

	for i := range m.Unknown {
		if m.Unknown[i], err = r.F32(); err != nil {
			return err
		}
	}

	if p.OnMetadata != nil {
		p.OnMetadata(m)
	}
	return nil
}

// parseReports walks a report list. The containing frame only records the
// combined size, so reports are consumed until the buffer runs out.
func (p *Parser) parseReports(r *Reader) error {
	for r.Remaining() > 0 {
		typ, err := r.U8()
		if err != nil {
			return err
		}
		if err := r.Skip(1); err != nil { // flags
			return err
		}
		size, err := r.U16()
		if err != nil {
			return err
		}

		sub, err := r.Sub(int(size))
		if err != nil {
			return err
		}

		switch typ {
		case ReportTypeStylusV1:
			err = p.parseStylusV1(sub)
		case ReportTypeStylusV2:
			err = p.parseStylusV2(sub)
		case ReportTypeDimensions:
			err = p.parseDimensions(sub)
		case ReportTypeTimestamp:
			err = p.parseTimestamp(sub)
		case ReportTypeHeatmap:
			err = p.parseHeatmapData(sub)
		case ReportTypePenDftWindow:
			err = p.parseDftWindow(sub)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func readStylusReportHeader(r *Reader) (elements uint8, serial uint32, err error) {
	if elements, err = r.U8(); err != nil {
		return
	}
	if err = r.Skip(3); err != nil {
		return
	}
	serial, err = r.U32()
	return
}

// parseStylusV1 decodes a first generation stylus report: no tilt, 1024
// pressure levels. A report carries several samples from a 5ms window;
// only the last one is emitted to avoid jitter in the output.
func (p *Parser) parseStylusV1(r *Reader) error {
	const dataSize = 12

	elements, serial, err := readStylusReportHeader(r)
	if err != nil {
		return err
	}
	for i := 0; i+1 < int(elements); i++ {
		if err := r.Skip(dataSize); err != nil {
			return err
		}
	}

	if err := r.Skip(4); err != nil { // reserved
		return err
	}
	mode, err := r.U8()
	if err != nil {
		return err
	}
	x, err := r.U16()
	if err != nil {
		return err
	}
	y, err := r.U16()
	if err != nil {
		return err
	}
	pressure, err := r.U16()
	if err != nil {
		return err
	}

	stylus := StylusData{
		Serial:    serial,
		Proximity: mode&(1<<StylusModeBitProximity) != 0,
		Button:    mode&(1<<StylusModeBitButton) != 0,
		Rubber:    mode&(1<<StylusModeBitRubber) != 0,
		X:         float64(x) / MaxX,
		Y:         float64(y) / MaxY,
		Pressure:  float64(pressure) / MaxPressureV1,
	}
	stylus.Contact = stylus.Pressure > 0

	if p.OnStylus != nil {
		p.OnStylus(stylus)
	}
	return nil
}

// parseStylusV2 decodes a second generation stylus report: tilt support
// and 4096 pressure levels. Like v1, only the last sample is emitted.
func (p *Parser) parseStylusV2(r *Reader) error {
	elements, serial, err := readStylusReportHeader(r)
	if err != nil {
		return err
	}
	for i := 0; i+1 < int(elements); i++ {
		if err := r.Skip(stylusDataSize); err != nil {
			return err
		}
	}

	var v [7]uint16
	for i := range v {
		if v[i], err = r.U16(); err != nil {
			return err
		}
	}
	timestamp, mode, x, y, pressure, altitude, azimuth := v[0], v[1], v[2], v[3], v[4], v[5], v[6]

	stylus := StylusData{
		Serial:    serial,
		Timestamp: timestamp,
		Proximity: mode&(1<<StylusModeBitProximity) != 0,
		Button:    mode&(1<<StylusModeBitButton) != 0,
		Rubber:    mode&(1<<StylusModeBitRubber) != 0,
		X:         float64(x) / MaxX,
		Y:         float64(y) / MaxY,
		Pressure:  float64(pressure) / MaxPressureV2,
		Altitude:  float64(altitude) / 18000.0 * math.Pi,
		Azimuth:   float64(azimuth) / 18000.0 * math.Pi,
	}
	stylus.Contact = stylus.Pressure > 0

	if p.OnStylus != nil {
		p.OnStylus(stylus)
	}
	return nil
}

// parseDimensions caches the grid dimensions for the heatmap or DFT
// window that follows in a later report.
func (p *Parser) parseDimensions(r *Reader) error {
	v := []*uint8{
		&p.dim.Height, &p.dim.Width,
		&p.dim.YMin, &p.dim.YMax,
		&p.dim.XMin, &p.dim.XMax,
		&p.dim.ZMin, &p.dim.ZMax,
	}
	for _, d := range v {
		var err error
		if *d, err = r.U8(); err != nil {
			return err
		}
	}

	// Newer devices report z_max as 0; substitute a sane value.
	if p.dim.ZMax == 0 {
		p.dim.ZMax = 255
	}
	return nil
}

func (p *Parser) parseTimestamp(r *Reader) error {
	if err := r.Skip(2); err != nil {
		return err
	}
	var err error
	if p.time.Count, err = r.U16(); err != nil {
		return err
	}
	p.time.Value, err = r.U32()
	return err
}

// parseHeatmapData emits a heatmap sized by the previous dimensions report.
func (p *Parser) parseHeatmapData(r *Reader) error {
	size := int(p.dim.Width) * int(p.dim.Height)

	data, err := r.Bytes(size)
	if err != nil {
		return err
	}

	if p.OnHeatmap != nil {
		p.OnHeatmap(&Heatmap{Dim: p.dim, Time: p.time, Data: data})
	}
	return nil
}

// parseHeatmapFrame handles heatmaps on HID-native devices, which arrive
// in a dedicated frame with a small header instead of a report.
func (p *Parser) parseHeatmapFrame(r *Reader) error {
	if err := r.Skip(5); err != nil {
		return err
	}
	size, err := r.U32()
	if err != nil {
		return err
	}

	sub, err := r.Sub(int(size))
	if err != nil {
		return err
	}
	return p.parseHeatmapData(sub)
}

func readDftRow(r *Reader) (Row, error) {
	var row Row
	var err error

	if row.Frequency, err = r.U32(); err != nil {
		return row, err
	}
	if row.Magnitude, err = r.U32(); err != nil {
		return row, err
	}
	for i := range row.Real {
		if row.Real[i], err = r.I16(); err != nil {
			return row, err
		}
	}
	for i := range row.Imag {
		if row.Imag[i], err = r.I16(); err != nil {
			return row, err
		}
	}

	v := []*uint8{&row.First, &row.Last, &row.Mid, &row.Zero}
	for _, d := range v {
		if *d, err = r.U8(); err != nil {
			return row, err
		}
	}
	return row, nil
}

// parseDftWindow decodes a DFT window report. HID-native devices leave
// the stylus position inversion to the client; the emitted window is the
// raw antenna data plus the cached dimensions.
func (p *Parser) parseDftWindow(r *Reader) error {
	if err := r.Skip(4); err != nil { // device timestamp, approx 8MHz
		return err
	}
	numRows, err := r.U8()
	if err != nil {
		return err
	}
	seqNum, err := r.U8()
	if err != nil {
		return err
	}
	if err := r.Skip(3); err != nil { // reserved
		return err
	}
	dataType, err := r.U8()
	if err != nil {
		return err
	}
	if err := r.Skip(2); err != nil { // reserved
		return err
	}

	if numRows > MaxRows {
		return fmt.Errorf("ipts: DFT window claims %d rows, limit is %d", numRows, MaxRows)
	}

	dft := DftWindow{
		Type: DftType(dataType),
		Rows: numRows,
		Dim:  p.dim,
		Time: p.time,

		// The sequence number is shared by all windows of one capture
		// batch; it is the group token for phase comparisons.
		Group:    uint32(seqNum),
		HasGroup: true,
	}

	for i := 0; i < int(numRows); i++ {
		if dft.X[i], err = readDftRow(r); err != nil {
			return err
		}
	}
	for i := 0; i < int(numRows); i++ {
		if dft.Y[i], err = readDftRow(r); err != nil {
			return err
		}
	}

	if p.OnDft != nil {
		p.OnDft(&dft)
	}
	return nil
}
