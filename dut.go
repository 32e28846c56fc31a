package main

import (
	"math"
)

// Biquad is a direct form 1 second-order section. In live mode it stands in
// for the device under test so the plot shows a known frequency response.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewLowPass returns an RBJ cookbook low-pass biquad.
func NewLowPass(sampleRate int, freq, q float64) *Biquad {
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return &Biquad{
		b0: (1 - cosw0) / 2 / a0,
		b1: (1 - cosw0) / a0,
		b2: (1 - cosw0) / 2 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *Biquad) Process(x Smp) Smp {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

func (f *Biquad) ProcessBlock(in []Smp, out []Smp) {
	for i, x := range in {
		out[i] = f.Process(x)
	}
}

// Response evaluates the filter's complex frequency response at freq.
func (f *Biquad) Response(sampleRate int, freq float64) complex128 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	z1 := complex(math.Cos(-w), math.Sin(-w))
	z2 := z1 * z1
	num := complex(f.b0, 0) + complex(f.b1, 0)*z1 + complex(f.b2, 0)*z2
	den := complex(1, 0) + complex(f.a1, 0)*z1 + complex(f.a2, 0)*z2
	return num / den
}
