package ipts

// Row holds the antenna measurements for a single frequency bin on one axis.
type Row struct {
	// Frequency is the modulation frequency reported by the firmware.
	Frequency uint32

	// Magnitude is a squared-amplitude summary computed by the firmware.
	// It is used as a signal-strength gate before interpolation.
	Magnitude uint32

	// Antenna indices of the first sample, last sample, center sample
	// and the zero-response channel.
	First uint8
	Last  uint8
	Mid   uint8
	Zero  uint8

	// I/Q samples of the NumComponents antennas around the peak. A pair
	// of zeroes next to the center marks an off-screen edge position.
	Real [NumComponents]int16
	Imag [NumComponents]int16
}

// Dimensions describes the active antenna grid of a heatmap or DFT window.
type Dimensions struct {
	Height uint8
	Width  uint8
	YMin   uint8
	YMax   uint8
	XMin   uint8
	XMax   uint8
	ZMin   uint8
	ZMax   uint8
}

// Timestamp is the capture time report that precedes heatmap and DFT data.
type Timestamp struct {
	Count uint16
	Value uint32
}

// DftWindow is one frame of frequency-domain antenna measurements,
// a pair of per-axis row lists captured coherently.
type DftWindow struct {
	Type DftType

	// Group is a firmware-assigned token identifying the capture batch.
	// Phases of two windows are only comparable if their groups match.
	Group    uint32
	HasGroup bool

	// Rows is the number of populated entries in X and Y, at most MaxRows.
	Rows uint8

	Dim  Dimensions
	Time Timestamp

	// X and Y are the per-axis rows. Index 0 is the primary transmitter,
	// index 1 the secondary one (used for tilt).
	X [MaxRows]Row
	Y [MaxRows]Row
}

// Heatmap is a capacitive heatmap as sent by the device. Data is a view
// into the report buffer and only valid for the duration of the callback.
type Heatmap struct {
	Dim  Dimensions
	Time Timestamp

	Data []byte
}

// StylusData is the decoded state of a stylus.
//
// X, Y and Pressure are fractions of the active area and the maximum
// pressure. Azimuth is in [0, 2pi), altitude in [0, pi/2], both radians.
type StylusData struct {
	Proximity bool
	Contact   bool
	Button    bool
	Rubber    bool

	Timestamp uint16
	X         float64
	Y         float64
	Pressure  float64
	Altitude  float64
	Azimuth   float64
	Serial    uint32
}

// MetadataSize describes the antenna grid and the physical size of the
// panel in micrometers.
type MetadataSize struct {
	Rows    uint32
	Columns uint32
	Width   uint32
	Height  uint32
}

// MetadataTransform is the affine transform that maps device coordinates
// onto the screen. A negative XX or YY means the axis is inverted.
type MetadataTransform struct {
	XX, YX, TX float32
	XY, YY, TY float32
}

// Metadata is the device self-description read from a feature report.
// Not all devices support it.
type Metadata struct {
	Size        MetadataSize
	Transform   MetadataTransform
	UnknownByte uint8
	Unknown     [16]float32
}

// DeviceInfo identifies the device that produced a stream of reports.
type DeviceInfo struct {
	Vendor     uint16
	Product    uint16
	BufferSize uint64
}
