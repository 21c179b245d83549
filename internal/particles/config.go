package particles

import (
	"fmt"

	"github.com/san-kum/partsim/internal/compute"
)

const (
	DefaultMaxLinksPerParticle = 6
	DefaultLinkStrength        = 1.0
	DefaultAntiPressurePower   = 0.25
	DefaultIterations          = 5
	DefaultCellDivisor         = 5.0
)

// Config fixes the capacities and world of a System. Capacities never change
// after construction.
type Config struct {
	MaxParticles        int
	MaxLinks            int
	MaxLinksPerParticle int
	Width, Height       int
	Radius              float32

	// EvictOldest makes a full system recycle its oldest particle or link on
	// add instead of failing with plist.ErrCapacityExceeded.
	EvictOldest bool

	// CellDivisor sets grid cells to CellDivisor particle diameters.
	CellDivisor float32

	// Threads bounds the grid build fan-out; <= 0 uses every CPU.
	Threads int
}

func (c Config) withDefaults() Config {
	if c.MaxLinksPerParticle == 0 {
		c.MaxLinksPerParticle = DefaultMaxLinksPerParticle
	}
	if c.MaxLinks == 0 {
		c.MaxLinks = c.MaxParticles * c.MaxLinksPerParticle / 2
	}
	if c.CellDivisor == 0 {
		c.CellDivisor = DefaultCellDivisor
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.MaxParticles <= 0:
		return fmt.Errorf("%w: max particles must be positive, got %d", ErrInvalidConfig, c.MaxParticles)
	case c.MaxLinks <= 0:
		return fmt.Errorf("%w: max links must be positive, got %d", ErrInvalidConfig, c.MaxLinks)
	case c.MaxLinksPerParticle < 0:
		return fmt.Errorf("%w: max links per particle must not be negative", ErrInvalidConfig)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: bounds must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case !(c.Radius > 0):
		return fmt.Errorf("%w: radius must be positive, got %f", ErrInvalidConfig, c.Radius)
	case c.CellDivisor <= 0:
		return fmt.Errorf("%w: cell divisor must be positive", ErrInvalidConfig)
	}
	return nil
}

func cellCountFor(width, height int, radius, divisor float32) [2]int {
	diameter := radius * 2
	cx := int(float32(width) / diameter / divisor)
	cy := int(float32(height) / diameter / divisor)
	return [2]int{max(cx, 1), max(cy, 1)}
}

func layoutFor(c Config, cells [2]int) compute.Layout {
	return compute.Layout{
		Particles:        c.MaxParticles,
		Links:            c.MaxLinks,
		LinksPerParticle: c.MaxLinksPerParticle,
		Cells:            cells[0] * cells[1],
	}
}
