package config

import "github.com/linux-surface/iptsgo/pkg/ipts"

// ApplyMetadata seeds panel properties from the device metadata: the
// physical size (reported in micrometers) and the axis inversion encoded
// in the coordinate transform. Values that were configured explicitly
// win over the metadata.
func (c *Config) ApplyMetadata(meta *ipts.Metadata) {
	if meta == nil {
		return
	}

	if c.Width == 0 {
		c.Width = float64(meta.Size.Width) / 1e3
	}
	if c.Height == 0 {
		c.Height = float64(meta.Size.Height) / 1e3
	}

	if meta.Transform.XX < 0 {
		c.InvertX = true
	}
	if meta.Transform.YY < 0 {
		c.InvertY = true
	}
}
