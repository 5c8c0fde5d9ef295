// Package hidraw talks to IPTS touchscreens through the Linux hidraw
// interface: raw report reads, feature reports and enough HID descriptor
// parsing to find the reports that matter.
package hidraw

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Mode is the operating mode of an IPTS device.
type Mode uint8

const (
	ModeSingletouch Mode = 0
	ModeMultitouch  Mode = 1
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (uint32('H') << iocTypeShift) |
		(nr << iocNRShift) | (size << iocSizeShift))
}

const descBufSize = 4096

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Device is an open hidraw node that was verified to be an IPTS device.
type Device struct {
	file *os.File
	info ipts.DeviceInfo
	desc *Descriptor
}

// Open opens the hidraw node at path and checks that it describes an
// IPTS touchscreen (it must have a modesetting report and at least one
// touch data report).
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	d := &Device{file: f}

	if err := d.init(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return d, nil
}

func (d *Device) init() error {
	// struct hidraw_devinfo { __u32 bustype; __s16 vendor; __s16 product; }
	var devinfo struct {
		Bustype uint32
		Vendor  int16
		Product int16
	}
	if err := d.ioctl(ioc(iocRead, 0x03, uint32(unsafe.Sizeof(devinfo))), unsafe.Pointer(&devinfo)); err != nil {
		return fmt.Errorf("hidraw: query device info: %w", err)
	}

	var descSize uint32
	if err := d.ioctl(ioc(iocRead, 0x01, 4), unsafe.Pointer(&descSize)); err != nil {
		return fmt.Errorf("hidraw: query descriptor size: %w", err)
	}
	if descSize > descBufSize {
		return fmt.Errorf("hidraw: descriptor too large: %d", descSize)
	}

	// struct hidraw_report_descriptor { __u32 size; __u8 value[4096]; }
	var raw struct {
		Size  uint32
		Value [descBufSize]byte
	}
	raw.Size = descSize
	if err := d.ioctl(ioc(iocRead, 0x02, uint32(unsafe.Sizeof(raw))), unsafe.Pointer(&raw)); err != nil {
		return fmt.Errorf("hidraw: read descriptor: %w", err)
	}

	desc, err := ParseDescriptor(raw.Value[:descSize])
	if err != nil {
		return err
	}

	if _, ok := desc.ModesettingReport(); !ok {
		return fmt.Errorf("hidraw: %s is not an IPTS device", d.file.Name())
	}
	if len(desc.TouchDataReports()) == 0 {
		return fmt.Errorf("hidraw: %s is not an IPTS device", d.file.Name())
	}

	d.desc = desc
	d.info = ipts.DeviceInfo{
		Vendor:     uint16(devinfo.Vendor),
		Product:    uint16(devinfo.Product),
		BufferSize: desc.BufferSize(),
	}

	return nil
}

// Path returns the device node the device was opened from.
func (d *Device) Path() string {
	return d.file.Name()
}

// Info returns the identity of the device.
func (d *Device) Info() ipts.DeviceInfo {
	return d.info
}

// Descriptor returns the parsed HID report descriptor.
func (d *Device) Descriptor() *Descriptor {
	return d.desc
}

// BufferSize returns the required read buffer size: the size of the
// largest touch data report, plus one byte for the report ID.
func (d *Device) BufferSize() int {
	return int(d.info.BufferSize) + 1
}

// Read reads one report from the device. The buffer should have
// BufferSize bytes; the first byte is the report ID.
func (d *Device) Read(buf []byte) (int, error) {
	return d.file.Read(buf)
}

// IsTouchData reports whether a buffer read from the device contains
// touch data, based on its report ID.
func (d *Device) IsTouchData(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	for _, r := range d.desc.TouchDataReports() {
		if r.ID == buf[0] {
			return true
		}
	}

	return false
}

// GetFeature reads a feature report. buf[0] must hold the report ID.
func (d *Device) GetFeature(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("hidraw: empty feature buffer")
	}
	return d.ioctl(ioc(iocRead|iocWrite, 0x07, uint32(len(buf))), unsafe.Pointer(&buf[0]))
}

// SetFeature writes a feature report. buf[0] must hold the report ID.
func (d *Device) SetFeature(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("hidraw: empty feature buffer")
	}
	return d.ioctl(ioc(iocRead|iocWrite, 0x06, uint32(len(buf))), unsafe.Pointer(&buf[0]))
}

// SetMode switches the device between singletouch and multitouch mode.
func (d *Device) SetMode(mode Mode) error {
	report, ok := d.desc.ModesettingReport()
	if !ok {
		return fmt.Errorf("hidraw: device has no modesetting report")
	}

	return d.SetFeature([]byte{report.ID, byte(mode)})
}

// Metadata reads the device metadata from its feature report. Devices
// without a metadata report return nil without error.
func (d *Device) Metadata() (*ipts.Metadata, error) {
	report, ok := d.desc.MetadataReport()
	if !ok {
		return nil, nil
	}

	buf := make([]byte, report.Size()+1)
	buf[0] = report.ID

	if err := d.GetFeature(buf); err != nil {
		return nil, fmt.Errorf("hidraw: read metadata: %w", err)
	}

	var meta *ipts.Metadata

	parser := ipts.Parser{}
	parser.OnMetadata = func(m ipts.Metadata) { meta = &m }

	if err := parser.ParseWithHeader(buf, 1); err != nil {
		return nil, fmt.Errorf("hidraw: parse metadata: %w", err)
	}

	return meta, nil
}

// Close closes the underlying hidraw node. Closing also unblocks a
// concurrent Read.
func (d *Device) Close() error {
	return d.file.Close()
}

// FindDevice scans /dev/hidraw* and returns the first node that is an
// IPTS device.
func FindDevice() (*Device, error) {
	nodes, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, err
	}

	for _, node := range nodes {
		dev, err := Open(node)
		if err != nil {
			continue
		}
		return dev, nil
	}

	return nil, fmt.Errorf("hidraw: no IPTS device found")
}
