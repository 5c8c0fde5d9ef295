package hidraw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// iptsDescriptor is a reduced version of the descriptor found on IPTS
// touchscreens: one vendor input report with touch data, a one byte
// modesetting feature report and a metadata feature report.
var iptsDescriptor = []byte{
	0x05, 0x0D, // Usage Page (Digitizer)

	0x85, 0x40, // Report ID (0x40)
	0x09, 0x56, // Usage (Scan Time)
	0x09, 0x61, // Usage (Gesture Data)
	0x75, 0x08, // Report Size (8)
	0x95, 0x64, // Report Count (100)
	0x81, 0x02, // Input (Data, Var, Abs)

	0x85, 0x50, // Report ID (0x50)
	0x09, 0xC8, // Usage (Set Mode)
	0x95, 0x01, // Report Count (1)
	0xB1, 0x02, // Feature (Data, Var, Abs)

	0x85, 0x51, // Report ID (0x51)
	0x09, 0x63, // Usage (Metadata)
	0x95, 0x78, // Report Count (120)
	0xB1, 0x02, // Feature (Data, Var, Abs)
}

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor(iptsDescriptor)
	require.NoError(t, err)

	touch := desc.TouchDataReports()
	require.Len(t, touch, 1)
	assert.Equal(t, uint8(0x40), touch[0].ID)
	assert.Equal(t, uint32(100), touch[0].Size())

	mode, ok := desc.ModesettingReport()
	require.True(t, ok)
	assert.Equal(t, uint8(0x50), mode.ID)
	assert.Equal(t, uint32(1), mode.Size())

	meta, ok := desc.MetadataReport()
	require.True(t, ok)
	assert.Equal(t, uint8(0x51), meta.ID)
	assert.Equal(t, uint32(120), meta.Size())

	assert.Equal(t, uint64(100), desc.BufferSize())
}

func TestParseDescriptorNotIpts(t *testing.T) {
	// A plain mouse-style descriptor: no digitizer usages at all.
	desc, err := ParseDescriptor([]byte{
		0x05, 0x01, // Usage Page (Generic Desktop)
		0x09, 0x02, // Usage (Mouse)
		0x85, 0x01, // Report ID (1)
		0x75, 0x08, // Report Size (8)
		0x95, 0x03, // Report Count (3)
		0x81, 0x02, // Input
	})
	require.NoError(t, err)

	assert.Empty(t, desc.TouchDataReports())

	_, ok := desc.ModesettingReport()
	assert.False(t, ok)

	_, ok = desc.MetadataReport()
	assert.False(t, ok)

	assert.Zero(t, desc.BufferSize())
}

func TestParseDescriptorExtendedUsage(t *testing.T) {
	// A four byte usage carries its own usage page in the upper half.
	desc, err := ParseDescriptor([]byte{
		0x05, 0x01, // Usage Page (Generic Desktop)
		0x85, 0x02, // Report ID (2)
		0x0B, 0x56, 0x00, 0x0D, 0x00, // Usage (Digitizer / Scan Time)
		0x0B, 0x61, 0x00, 0x0D, 0x00, // Usage (Digitizer / Gesture Data)
		0x75, 0x08, // Report Size (8)
		0x95, 0x10, // Report Count (16)
		0x81, 0x02, // Input
	})
	require.NoError(t, err)

	touch := desc.TouchDataReports()
	require.Len(t, touch, 1)
	assert.Equal(t, uint8(0x02), touch[0].ID)
}

func TestParseDescriptorTruncated(t *testing.T) {
	_, err := ParseDescriptor([]byte{0x85})
	assert.Error(t, err)
}
