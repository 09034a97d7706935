package vbatch

import "fmt"

// Mask selects lanes of a batch. A true value selects the lane.
type Mask []bool

// NewMask returns a mask of n lanes all set to v.
func NewMask(n int, v bool) Mask {
	m := make(Mask, n)
	if v {
		for i := range m {
			m[i] = true
		}
	}
	return m
}

// Count returns the amount of selected lanes.
func (m Mask) Count() (n int) {
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one lane is selected.
func (m Mask) Any() bool {
	for _, b := range m {
		if b {
			return true
		}
	}
	return false
}

// All reports whether every lane is selected.
func (m Mask) All() bool {
	for _, b := range m {
		if !b {
			return false
		}
	}
	return true
}

// Not returns the complement of m.
func (m Mask) Not() Mask {
	c := make(Mask, len(m))
	for i, b := range m {
		c[i] = !b
	}
	return c
}

// And returns the lane-wise conjunction of m and o.
func (m Mask) And(o Mask) Mask {
	mustSameLen(len(m), len(o))
	c := make(Mask, len(m))
	for i := range m {
		c[i] = m[i] && o[i]
	}
	return c
}

// Or returns the lane-wise disjunction of m and o.
func (m Mask) Or(o Mask) Mask {
	mustSameLen(len(m), len(o))
	c := make(Mask, len(m))
	for i := range m {
		c[i] = m[i] || o[i]
	}
	return c
}

// Extract returns the values of sub-mask o at the lanes selected by m.
// It is the [V3.Extract] counterpart for masks.
func (m Mask) Extract(o Mask) Mask {
	mustSameLen(len(m), len(o))
	c := make(Mask, 0, m.Count())
	for i, b := range m {
		if b {
			c = append(c, o[i])
		}
	}
	return c
}

// Expand maps a mask over the selected lanes of m back onto the full lane range
// of m. Lanes not selected by m are false in the result.
func (m Mask) Expand(sub Mask) Mask {
	c := make(Mask, len(m))
	j := 0
	for i, b := range m {
		if b {
			c[i] = sub[j]
			j++
		}
	}
	if j != len(sub) {
		panic(fmt.Sprintf("vbatch: expand mask selects %d lanes but sub-mask has %d", j, len(sub)))
	}
	return c
}

// ExtractFloats returns the values of f at lanes selected by mask, preserving order.
func ExtractFloats(mask Mask, f []float64) []float64 {
	mustSameLen(len(mask), len(f))
	dst := make([]float64, 0, mask.Count())
	for i, b := range mask {
		if b {
			dst = append(dst, f[i])
		}
	}
	return dst
}

// PlaceFloats writes values in order into the lanes of dst selected by mask.
// The amount of values must equal the amount of selected lanes.
//
// PlaceFloats mutates dst.
func PlaceFloats(mask Mask, dst, values []float64) {
	mustSameLen(len(mask), len(dst))
	j := 0
	for i, b := range mask {
		if b {
			if j >= len(values) {
				panic(fmt.Sprintf("vbatch: place needs %d values, got %d", mask.Count(), len(values)))
			}
			dst[i] = values[j]
			j++
		}
	}
	if j != len(values) {
		panic(fmt.Sprintf("vbatch: place needs %d values, got %d", j, len(values)))
	}
}

// WhereFloats returns a slice choosing a[i] where useFirst[i] is true and b[i] otherwise.
func WhereFloats(useFirst Mask, a, b []float64) []float64 {
	mustSameLen(len(useFirst), len(a))
	mustSameLen(len(a), len(b))
	dst := make([]float64, len(a))
	for i, first := range useFirst {
		if first {
			dst[i] = a[i]
		} else {
			dst[i] = b[i]
		}
	}
	return dst
}

// Fill returns n lanes set to v.
func Fill(n int, v float64) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func mustSameLen(a, b int) {
	if a != b {
		panic(fmt.Sprintf("vbatch: lane count mismatch %d != %d", a, b))
	}
}
