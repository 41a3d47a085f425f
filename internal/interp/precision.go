package interp

import (
	"math"

	"github.com/funvibe/graphir/internal/config"
)

// roundTo quantizes x to the named precision. f64 is the identity; f32
// and f16 round through the corresponding binary format and back.
func roundTo(precision string, x float64) float64 {
	switch precision {
	case config.PrecisionDouble:
		return x
	case config.PrecisionSingle:
		return float64(float32(x))
	case config.PrecisionHalf:
		return roundHalf(x)
	default:
		return x
	}
}

// roundHalf rounds through IEEE 754 binary16 (round-to-nearest-even).
func roundHalf(x float64) float64 {
	f := float32(x)
	bits := math.Float32bits(f)
	sign := float64(1)
	if bits&0x8000_0000 != 0 {
		sign = -1
	}
	exp := int32(bits>>23&0xff) - 127
	man := bits & 0x7f_ffff

	switch {
	case exp == 128: // Inf or NaN passes through
		return x
	case exp > 15: // overflow
		return sign * math.Inf(1)
	case exp >= -14: // normal half
		// keep 10 mantissa bits, round to nearest even on the rest
		keep := man >> 13
		rest := man & 0x1fff
		if rest > 0x1000 || (rest == 0x1000 && keep&1 == 1) {
			keep++
		}
		m := 1 + float64(keep)/1024
		if keep == 1024 { // mantissa carry
			m = 2
		}
		return sign * m * math.Pow(2, float64(exp))
	case exp >= -24: // subnormal half: quantize to multiples of 2^-24
		q := math.RoundToEven(math.Abs(x) * (1 << 24))
		return sign * q / (1 << 24)
	default: // underflow
		return sign * 0
	}
}
