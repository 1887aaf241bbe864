package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Scale maps x in [0,inMax] onto [0,outMax] with 64-bit intermediates.
// Out-of-range input is clamped first.
func Scale[T constraints.Integer](x, inMax, outMax T) T {
	if inMax <= 0 {
		return 0
	}
	x = Clamp(x, 0, inMax)
	return T(int64(x) * int64(outMax) / int64(inMax))
}

// Remap linearly maps v from [inLo,inHi] to [outLo,outHi]. A degenerate
// input range maps everything to the midpoint of the output range.
func Remap[T constraints.Float](v, inLo, inHi, outLo, outHi T) T {
	if inHi == inLo {
		return (outLo + outHi) / 2
	}
	return outLo + (v-inLo)*(outHi-outLo)/(inHi-inLo)
}
