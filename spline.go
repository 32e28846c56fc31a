package main

// Octave-smoothed spline accumulation.
//
// Frequency bins are collapsed in groups of pointsPerOctave into one smoothed
// point each. Adjacent smoothed points are joined by cubic segments whose
// control points are derived Catmull-Rom style from the neighbouring points,
// with clamped tangents at both ends of the run.

// iterateForSpline walks bins [0,size), calling accumulate for every bin.
// After each full group of pointsPerOctave bins it calls before with the
// group size; before reduces the caller-owned accumulator into one smoothed
// complex point plus one auxiliary scalar and resets the accumulator. For
// every pair of adjacent smoothed points one segment is handed to collected
// as four complex control values ac and four auxiliary values c. Emission
// lags one point behind accumulation so interior segments see their
// follow-up neighbour; the final segment is flushed when the bins run out.
//
// pointsPerOctave <= 0 disables smoothing: no groups, no segments. A
// trailing group short of pointsPerOctave bins is dropped.
func iterateForSpline(
	pointsPerOctave, size int,
	accumulate func(i int),
	before func(count int) (complex128, float64),
	collected func(ac [4]complex128, c [4]float64),
) {
	if pointsPerOctave <= 0 {
		return
	}

	// smoothed points, newest last
	var points []complex128
	var aux []float64

	// emit the segment points[i1] -> points[i2], with i0/i3 the outer
	// neighbours (clamped to the run ends)
	emit := func(i0, i1, i2, i3 int) {
		p0, p1, p2, p3 := points[i0], points[i1], points[i2], points[i3]
		a0, a1, a2, a3 := aux[i0], aux[i1], aux[i2], aux[i3]
		ac := [4]complex128{
			p1,
			p1 + (p2-p0)/6,
			p2 - (p3-p1)/6,
			p2,
		}
		c := [4]float64{
			a1,
			a1 + (a2-a0)/6,
			a2 - (a3-a1)/6,
			a2,
		}
		collected(ac, c)
	}

	count := 0
	for i := 0; i < size; i++ {
		accumulate(i)
		count++
		if count != pointsPerOctave {
			continue
		}
		p, a := before(count)
		points = append(points, p)
		aux = append(aux, a)
		count = 0
		if n := len(points); n >= 3 {
			i1 := n - 3
			emit(max(i1-1, 0), i1, n-2, n-1)
		}
	}
	if n := len(points); n >= 2 {
		i1 := n - 2
		emit(max(i1-1, 0), i1, n-1, n-1)
	}
}
