// Package uinput forwards decoded stylus state to the kernel input
// subsystem through a virtual device.
package uinput

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Linux input event types and codes used by the virtual stylus.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnToolPen    = 0x140
	btnToolRubber = 0x141
	btnTouch      = 0x14A
	btnStylus     = 0x14B

	absX        = 0x00
	absY        = 0x01
	absPressure = 0x18
	absTiltX    = 0x1A
	absTiltY    = 0x1B

	inputPropDirect = 0x01

	busVirtual = 0x06
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocNone  = 0
	iocWrite = 1
)

func ioc(dir, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (uint32('U') << iocTypeShift) |
		(nr << iocNRShift) | (size << iocSizeShift))
}

const intSize = 4

func uiSetBit(nr uint32) uintptr   { return ioc(iocWrite, nr, intSize) }
func uiDevCreate() uintptr         { return ioc(iocNone, 1, 0) }
func uiDevDestroy() uintptr        { return ioc(iocNone, 2, 0) }
func uiDevSetup(size uint32) uintptr { return ioc(iocWrite, 3, size) }
func uiAbsSetup(size uint32) uintptr { return ioc(iocWrite, 4, size) }
func uiSetPropBit() uintptr        { return uiSetBit(110) }

const (
	uiSetEvBit  = 100
	uiSetKeyBit = 101
	uiSetAbsBit = 103
)

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	Name         [80]byte
	FFEffectsMax uint32
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// uinputAbsSetup mirrors struct uinput_abs_setup.
type uinputAbsSetup struct {
	Code uint16
	_    uint16
	Abs  absInfo
}

// eventSize is the size of struct input_event on 64-bit kernels.
const eventSize = 24

// Stylus is a virtual pen device backed by /dev/uinput.
//
// Decoded state in [0,1] fractions is scaled to the classic IPTS axis
// ranges, and the spherical pen orientation is converted to the tilt
// angles that the input subsystem expects.
type Stylus struct {
	file *os.File
	buf  []byte
}

func (s *Stylus) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, s.file.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *Stylus) setBit(nr uint32, bit int32) error {
	return s.ioctl(uiSetBit(nr), unsafe.Pointer(&bit))
}

func (s *Stylus) setupAbs(code uint16, max, res int32) error {
	setup := uinputAbsSetup{Code: code}
	setup.Abs.Maximum = max
	setup.Abs.Resolution = res

	if code == absTiltX || code == absTiltY {
		setup.Abs.Minimum = -max
	}

	if err := s.setBit(uiSetAbsBit, int32(code)); err != nil {
		return err
	}
	return s.ioctl(uiAbsSetup(uint32(unsafe.Sizeof(setup))), unsafe.Pointer(&setup))
}

// CreateStylus registers a virtual stylus for the given device. The
// panel size from the config determines the axis resolutions.
func CreateStylus(cfg config.Config, info ipts.DeviceInfo) (*Stylus, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("uinput: open: %w", err)
	}

	s := &Stylus{file: f}

	fail := func(err error) (*Stylus, error) {
		_ = f.Close()
		return nil, fmt.Errorf("uinput: create stylus: %w", err)
	}

	for _, ev := range []int32{evKey, evAbs} {
		if err := s.setBit(uiSetEvBit, ev); err != nil {
			return fail(err)
		}
	}

	for _, key := range []int32{btnTouch, btnStylus, btnToolPen, btnToolRubber} {
		if err := s.setBit(uiSetKeyBit, key); err != nil {
			return fail(err)
		}
	}

	prop := int32(inputPropDirect)
	if err := s.ioctl(uiSetPropBit(), unsafe.Pointer(&prop)); err != nil {
		return fail(err)
	}

	// Resolution is in units per millimeter.
	resX, resY := int32(0), int32(0)
	if cfg.Width > 0 {
		resX = int32(math.Round(ipts.MaxX / cfg.Width))
	}
	if cfg.Height > 0 {
		resY = int32(math.Round(ipts.MaxY / cfg.Height))
	}

	axes := []struct {
		code uint16
		max  int32
		res  int32
	}{
		{absX, ipts.MaxX, resX},
		{absY, ipts.MaxY, resY},
		{absPressure, ipts.MaxPressureV2, 0},
		{absTiltX, 9000, 5730}, // units per radian
		{absTiltY, 9000, 5730},
	}
	for _, a := range axes {
		if err := s.setupAbs(a.code, a.max, a.res); err != nil {
			return fail(err)
		}
	}

	setup := uinputSetup{
		Bustype: busVirtual,
		Vendor:  info.Vendor,
		Product: info.Product,
		Version: 1,
	}
	copy(setup.Name[:], "IPTS Stylus")

	if err := s.ioctl(uiDevSetup(uint32(unsafe.Sizeof(setup))), unsafe.Pointer(&setup)); err != nil {
		return fail(err)
	}
	if err := s.ioctl(uiDevCreate(), nil); err != nil {
		return fail(err)
	}

	return s, nil
}

// appendEvent encodes one struct input_event. The kernel fills in the
// timestamp, so the time fields stay zero.
func appendEvent(buf []byte, typ, code uint16, value int32) []byte {
	var ev [eventSize]byte
	binary.LittleEndian.PutUint16(ev[16:], typ)
	binary.LittleEndian.PutUint16(ev[18:], code)
	binary.LittleEndian.PutUint32(ev[20:], uint32(value))
	return append(buf, ev[:]...)
}

// tiltAngles converts the spherical pen orientation into the per-axis
// tilt angles of the input protocol, in hundredths of a degree. The
// altitude is the angle from the panel normal: 0 is an upright pen.
func tiltAngles(altitude, azimuth float64) (int32, int32) {
	if altitude <= 0 {
		return 0, 0
	}

	x := math.Sin(altitude) * math.Cos(azimuth)
	y := -math.Sin(altitude) * math.Sin(azimuth)
	z := math.Cos(altitude)

	tx := math.Atan2(x, z) * 18000 / math.Pi
	ty := math.Atan2(y, z) * 18000 / math.Pi

	return int32(math.Round(tx)), int32(math.Round(ty))
}

// Emit translates one stylus state into an event batch.
func (s *Stylus) Emit(st ipts.StylusData) error {
	btn := func(b bool) int32 {
		if b {
			return 1
		}
		return 0
	}

	tx, ty := tiltAngles(st.Altitude, st.Azimuth)

	s.buf = s.buf[:0]
	s.buf = appendEvent(s.buf, evKey, btnToolPen, btn(st.Proximity && !st.Rubber))
	s.buf = appendEvent(s.buf, evKey, btnToolRubber, btn(st.Proximity && st.Rubber))
	s.buf = appendEvent(s.buf, evKey, btnTouch, btn(st.Contact))
	s.buf = appendEvent(s.buf, evKey, btnStylus, btn(st.Button))
	s.buf = appendEvent(s.buf, evAbs, absX, int32(math.Round(st.X*ipts.MaxX)))
	s.buf = appendEvent(s.buf, evAbs, absY, int32(math.Round(st.Y*ipts.MaxY)))
	s.buf = appendEvent(s.buf, evAbs, absPressure, int32(math.Round(st.Pressure*ipts.MaxPressureV2)))
	s.buf = appendEvent(s.buf, evAbs, absTiltX, tx)
	s.buf = appendEvent(s.buf, evAbs, absTiltY, ty)
	s.buf = appendEvent(s.buf, evSyn, synReport, 0)

	if _, err := s.file.Write(s.buf); err != nil {
		return fmt.Errorf("uinput: emit: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (s *Stylus) Close() error {
	_ = s.ioctl(uiDevDestroy(), nil)
	return s.file.Close()
}
