package geom

// Colors are packed little-endian RGBA: red in the low byte, alpha in the high.

func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

func UnpackRGBA(c uint32) (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}

// LerpRGBA blends two packed colors channel by channel, t in [0, 1].
func LerpRGBA(from, to uint32, t float32) uint32 {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	r0, g0, b0, a0 := UnpackRGBA(from)
	r1, g1, b1, a1 := UnpackRGBA(to)
	lerp := func(a, b uint8) uint8 {
		return uint8(float32(a) + (float32(b)-float32(a))*t + 0.5)
	}
	return PackRGBA(lerp(r0, r1), lerp(g0, g1), lerp(b0, b1), lerp(a0, a1))
}
