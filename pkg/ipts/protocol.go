package ipts

// HID usage pages used by IPTS devices.
const (
	UsagePageDigitizer uint16 = 0x000D
	UsagePageVendor    uint16 = 0xFF00
)

// HID usages identifying the special reports of an IPTS device.
const (
	// A report carrying both of these usages transports touch data.
	UsageScanTime    uint16 = 0x56
	UsageGestureData uint16 = 0x61

	// A one byte feature report with only this usage switches modes.
	UsageSetMode uint16 = 0xC8

	// A feature report with only this usage carries touch/pen metadata.
	UsageMetadata uint16 = 0x63
)

// Frame types of the legacy (GuC based) data path.
const (
	RawFrameTypeStylus  uint16 = 0x6
	RawFrameTypeHeatmap uint16 = 0x8
)

// Frame types of the HID-native data path.
const (
	HidFrameTypeHid      uint8 = 0x0
	HidFrameTypeHeatmap  uint8 = 0x1
	HidFrameTypeMetadata uint8 = 0x2
	HidFrameTypeRaw      uint8 = 0xEE
	HidFrameTypeReports  uint8 = 0xFF
)

// Report types found inside of frames.
const (
	ReportTypeTimestamp    uint8 = 0x00
	ReportTypeDimensions   uint8 = 0x03
	ReportTypeHeatmap      uint8 = 0x25
	ReportTypeStylusV1     uint8 = 0x10
	ReportTypeStylusV2     uint8 = 0x60
	ReportTypePenDftWindow uint8 = 0x5C
)

// Bits of the mode field in legacy stylus reports.
const (
	StylusModeBitProximity = 0
	StylusModeBitContact   = 1
	StylusModeBitButton    = 2
	StylusModeBitRubber    = 3
)

// Constants fixed by the DFT wire protocol.
const (
	// NumComponents is the number of I/Q samples in one DFT row.
	NumComponents = 9

	// MaxRows is the maximum number of rows per axis in a DFT window.
	MaxRows = 16

	// PressureRows is the number of frequency bins that a pressure
	// window sweeps over on current firmware.
	PressureRows = 16
)

// DftType identifies the payload of a DFT window.
//
// Values outside of the enumerated set are delivered by some firmware
// revisions; they must stay representable and are ignored by the decoder.
type DftType uint8

const (
	DftTypePosition  DftType = 6
	DftTypePosition2 DftType = 7
	DftType0x0A      DftType = 8
	DftTypeButton    DftType = 9
	DftType0x0B      DftType = 10
	DftTypePressure  DftType = 11
)

// Static limits for the data returned by legacy stylus reports.
const (
	MaxX          = 9600
	MaxY          = 7200
	MaxPressureV1 = 1024
	MaxPressureV2 = 4096
)
