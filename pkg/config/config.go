// Package config holds the tunable options of the stylus pipeline.
//
// The struct doubles as the kong flag/config-file surface: the same
// defaults apply whether a value comes from the command line, from the
// environment, or from a layered JSON/YAML/TOML configuration file.
package config

// MppVersion selects the button-detection strategy of the pen protocol.
//
// V1 pens encode button and eraser by inverting the transmitter phase
// relative to the position signal. V2 pens signal the button through a
// dedicated 0x0A DFT window instead.
type MppVersion string

const (
	MppV1 MppVersion = "v1"
	MppV2 MppVersion = "v2"
)

// Config is an immutable snapshot of all decoder and pipeline tunables.
// The decoder receives it by value at construction and never sees later
// changes.
type Config struct {
	InvertX bool `help:"Invert the X axis of the output." env:"IPTSGO_INVERT_X"`
	InvertY bool `help:"Invert the Y axis of the output." env:"IPTSGO_INVERT_Y"`

	Width  float64 `help:"Width of the active area in millimeters." env:"IPTSGO_WIDTH"`
	Height float64 `help:"Height of the active area in millimeters." env:"IPTSGO_HEIGHT"`

	MppVersion MppVersion `help:"Microsoft Pen Protocol generation of the pen." enum:"v1,v2" default:"v1" env:"IPTSGO_MPP_VERSION"`

	DftPositionMinAmp float64 `help:"Minimal phase-aligned amplitude for position interpolation." default:"50" env:"IPTSGO_DFT_POSITION_MIN_AMP"`
	DftPositionMinMag uint32  `help:"Minimal row magnitude for position frames." default:"2000" env:"IPTSGO_DFT_POSITION_MIN_MAG"`
	DftPositionExp    float64 `help:"Exponent applied to amplitudes before fitting the position parabola." default:"2" env:"IPTSGO_DFT_POSITION_EXP"`
	DftButtonMinMag   uint32  `help:"Minimal row magnitude for button frames." default:"1000" env:"IPTSGO_DFT_BUTTON_MIN_MAG"`
	DftFreqMinMag     uint32  `help:"Minimal row magnitude for frequency (pressure) interpolation." default:"10000" env:"IPTSGO_DFT_FREQ_MIN_MAG"`
	DftTiltMinMag     uint32  `help:"Minimal secondary transmitter magnitude for tilt extraction." default:"10000" env:"IPTSGO_DFT_TILT_MIN_MAG"`
	DftTiltDistance   float64 `help:"Distance between primary and secondary transmitter in millimeters." default:"0.6" env:"IPTSGO_DFT_TILT_DISTANCE"`
	DftTipDistance    float64 `help:"Distance between transmitter and pen tip in millimeters." default:"0" env:"IPTSGO_DFT_TIP_DISTANCE"`

	DftPosition2 bool `help:"Decode Position2 windows through the position handler." env:"IPTSGO_DFT_POSITION2"`
}

// Default returns the configuration with all kong tag defaults applied.
// It is what embedding code and tests should start from when they bypass
// the CLI layer.
func Default() Config {
	return Config{
		MppVersion:        MppV1,
		DftPositionMinAmp: 50,
		DftPositionMinMag: 2000,
		DftPositionExp:    2,
		DftButtonMinMag:   1000,
		DftFreqMinMag:     10000,
		DftTiltMinMag:     10000,
		DftTiltDistance:   0.6,
	}
}
