// Package app wires the parser, the DFT stylus decoder and the output
// sinks into a pipeline, and runs that pipeline against a live device or
// a recorded session.
package app

import (
	"math"

	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/dft"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Processor is the heart of the pipeline. It parses raw report buffers
// and fans the typed results out to the sinks: legacy stylus reports
// directly, DFT windows through the stylus decoder.
//
// A processor makes no assumptions about the source of its buffers;
// runners feed it from a device or from storage.
type Processor struct {
	cfg  config.Config
	info ipts.DeviceInfo
	meta *ipts.Metadata

	parser ipts.Parser
	stylus *dft.Stylus

	// OnStylus receives every updated stylus state.
	OnStylus func(ipts.StylusData)

	// OnDft receives every DFT window, after the decoder saw it.
	OnDft func(*ipts.DftWindow)

	// OnHeatmap receives capacitive heatmaps. Contact detection is not
	// part of this pipeline; the data is surfaced as-is.
	OnHeatmap func(*ipts.Heatmap)
}

// NewProcessor builds a pipeline for one device.
func NewProcessor(cfg config.Config, info ipts.DeviceInfo, meta *ipts.Metadata) *Processor {
	p := &Processor{
		cfg:    cfg,
		info:   info,
		meta:   meta,
		stylus: dft.New(cfg, meta),
	}

	p.parser.OnStylus = func(s ipts.StylusData) {
		p.emitStylus(s)
	}
	p.parser.OnDft = func(w *ipts.DftWindow) {
		p.stylus.Input(w)
		p.emitStylus(p.stylus.Stylus())

		if p.OnDft != nil {
			p.OnDft(w)
		}
	}
	p.parser.OnHeatmap = func(h *ipts.Heatmap) {
		if p.OnHeatmap != nil {
			p.OnHeatmap(h)
		}
	}

	return p
}

// Process parses one report buffer and drives the sinks.
func (p *Processor) Process(data []byte) error {
	return p.parser.Parse(data)
}

// Stylus returns the current state of the DFT stylus decoder.
func (p *Processor) Stylus() ipts.StylusData {
	return p.stylus.Stylus()
}

func (p *Processor) emitStylus(s ipts.StylusData) {
	ox, oy := p.tipOffset(s.Altitude, s.Azimuth)
	s.X += ox
	s.Y += oy

	if p.OnStylus != nil {
		p.OnStylus(s)
	}
}

// tipOffset corrects for pens whose transmitter sits a few millimeters
// above the tip: the more the pen tilts, the further the reported
// position drifts away from where the tip touches the panel.
func (p *Processor) tipOffset(altitude, azimuth float64) (float64, float64) {
	if altitude <= 0 || p.cfg.DftTipDistance == 0 {
		return 0, 0
	}
	if p.cfg.Width == 0 || p.cfg.Height == 0 {
		return 0, 0
	}

	offset := math.Sin(altitude) * p.cfg.DftTipDistance

	ox := offset * -math.Cos(azimuth)
	oy := offset * math.Sin(azimuth)

	return ox / p.cfg.Width, oy / p.cfg.Height
}
