package hidraw

import (
	"fmt"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// ReportKind distinguishes the main item classes of a HID report.
type ReportKind uint8

const (
	KindInput ReportKind = iota
	KindOutput
	KindFeature
)

// Usage is a HID usage qualified by its usage page.
type Usage struct {
	Page  uint16
	Value uint16
}

// Report is the aggregated description of one report ID and direction:
// all usages attached to its main items and its total payload size.
type Report struct {
	ID    uint8
	Kind  ReportKind
	Bits  uint32
	usage map[Usage]struct{}
}

// HasUsage reports whether the report carries the given usage.
func (r *Report) HasUsage(u Usage) bool {
	_, ok := r.usage[u]
	return ok
}

// Usages returns the number of distinct usages attached to the report.
func (r *Report) Usages() int {
	return len(r.usage)
}

// Size returns the payload size of the report in bytes.
func (r *Report) Size() uint32 {
	return (r.Bits + 7) / 8
}

// Descriptor is a parsed HID report descriptor, reduced to the per-report
// information needed to identify the special reports of an IPTS device.
type Descriptor struct {
	Reports []*Report
}

type descriptorState struct {
	usagePage  uint16
	reportID   uint8
	reportSize uint32
	reportCnt  uint32
	usages     []Usage
}

// ParseDescriptor walks the short items of a HID report descriptor and
// aggregates usages and sizes per report ID. Long items do not occur in
// practice and are skipped.
func ParseDescriptor(desc []byte) (*Descriptor, error) {
	d := &Descriptor{}
	byKey := map[[2]uint8]*Report{}

	var state descriptorState
	var stack []descriptorState

	commit := func(kind ReportKind) {
		key := [2]uint8{state.reportID, uint8(kind)}

		rep := byKey[key]
		if rep == nil {
			rep = &Report{ID: state.reportID, Kind: kind, usage: map[Usage]struct{}{}}
			byKey[key] = rep
			d.Reports = append(d.Reports, rep)
		}

		rep.Bits += state.reportSize * state.reportCnt
		for _, u := range state.usages {
			rep.usage[u] = struct{}{}
		}
	}

	for i := 0; i < len(desc); {
		prefix := desc[i]
		i++

		if prefix == 0xFE { // long item
			if i >= len(desc) {
				return nil, fmt.Errorf("hidraw: truncated long item")
			}
			i += int(desc[i]) + 2
			continue
		}

		size := int(prefix & 0x03)
		if size == 3 {
			size = 4
		}
		if i+size > len(desc) {
			return nil, fmt.Errorf("hidraw: truncated item 0x%02X", prefix)
		}

		var value uint32
		for j := 0; j < size; j++ {
			value |= uint32(desc[i+j]) << (8 * j)
		}
		i += size

		switch prefix & 0xFC {
		// Main items
		case 0x80: // Input
			commit(KindInput)
			state.usages = nil
		case 0x90: // Output
			commit(KindOutput)
			state.usages = nil
		case 0xB0: // Feature
			commit(KindFeature)
			state.usages = nil
		case 0xA0, 0xC0: // Collection, End Collection
			state.usages = nil

		// Global items
		case 0x04: // Usage Page
			state.usagePage = uint16(value)
		case 0x74: // Report Size
			state.reportSize = value
		case 0x94: // Report Count
			state.reportCnt = value
		case 0x84: // Report ID
			state.reportID = uint8(value)
		case 0xA4: // Push
			stack = append(stack, state)
		case 0xB4: // Pop
			if n := len(stack); n > 0 {
				usages := state.usages
				state = stack[n-1]
				state.usages = usages
				stack = stack[:n-1]
			}

		// Local items
		case 0x08: // Usage
			u := Usage{Page: state.usagePage, Value: uint16(value)}
			if size == 4 {
				u.Page = uint16(value >> 16)
			}
			state.usages = append(state.usages, u)
		}
	}

	return d, nil
}

// TouchDataReports returns the input reports that transport touch data:
// reports carrying both the scan time and the gesture data usage.
func (d *Descriptor) TouchDataReports() []*Report {
	var out []*Report

	for _, r := range d.Reports {
		if r.Kind != KindInput {
			continue
		}
		if !r.HasUsage(Usage{Page: ipts.UsagePageDigitizer, Value: ipts.UsageScanTime}) {
			continue
		}
		if !r.HasUsage(Usage{Page: ipts.UsagePageDigitizer, Value: ipts.UsageGestureData}) {
			continue
		}
		out = append(out, r)
	}

	return out
}

// ModesettingReport returns the one byte feature report that switches
// between singletouch and multitouch mode, if the device has one.
func (d *Descriptor) ModesettingReport() (*Report, bool) {
	for _, r := range d.Reports {
		if r.Kind != KindFeature || r.Usages() != 1 || r.Size() != 1 {
			continue
		}
		if r.HasUsage(Usage{Page: ipts.UsagePageDigitizer, Value: ipts.UsageSetMode}) {
			return r, true
		}
	}
	return nil, false
}

// MetadataReport returns the feature report carrying device metadata, if
// the device has one.
func (d *Descriptor) MetadataReport() (*Report, bool) {
	for _, r := range d.Reports {
		if r.Kind != KindFeature || r.Usages() != 1 {
			continue
		}
		if r.HasUsage(Usage{Page: ipts.UsagePageDigitizer, Value: ipts.UsageMetadata}) {
			return r, true
		}
	}
	return nil, false
}

// BufferSize returns the size of the largest touch data report, which is
// the read buffer size required for the device.
func (d *Descriptor) BufferSize() uint64 {
	var size uint64

	for _, r := range d.TouchDataReports() {
		if s := uint64(r.Size()); s > size {
			size = s
		}
	}

	return size
}
