package main

import (
	"math"
	"math/cmplx"
	"testing"
)

type stubSource struct {
	active    bool
	phase     []complex128
	magnitude []float64
	coherence []float64
}

func (s *stubSource) Active() bool { return s.active }

func (s *stubSource) Size() int { return len(s.phase) }

func (s *stubSource) Phase(i int) complex128 { return s.phase[i] }

func (s *stubSource) MagnitudeRaw(i int) float64 { return s.magnitude[i] }

func (s *stubSource) Coherence(i int) float64 { return s.coherence[i] }

func makeStubSource(n int) *stubSource {
	s := &stubSource{
		active:    true,
		phase:     make([]complex128, n),
		magnitude: make([]float64, n),
		coherence: make([]float64, n),
	}
	for i := range s.phase {
		angle := float64(i) * 0.01
		s.phase[i] = cmplx.Rect(1, angle)
		s.magnitude[i] = 1
		s.coherence[i] = 1
	}
	return s
}

// plainPlot is a plot that does not expose Nyquist settings.
type plainPlot struct {
	size Size
}

func (p *plainPlot) Size() Size { return p.size }

func (p *plainPlot) Bounds() (xMin, xMax, yMin, yMax float32) { return -1, 1, -1, 1 }

func TestBufferCapacity(t *testing.T) {
	for _, ppo := range []int{3, 6, 9, 12, 24, 48} {
		r := &NyquistRenderer{}
		r.source = makeStubSource(64)
		r.pointsPerOctave = ppo
		r.buildVertices()
		if got, want := len(r.vertices), ppo*144; got != want {
			t.Errorf("ppo=%d: buffer capacity %d, want %d", ppo, got, want)
		}
		if !r.refreshBuffers {
			t.Errorf("ppo=%d: first build must schedule buffer re-creation", ppo)
		}
	}
}

func TestBufferResizeOnlyOnChange(t *testing.T) {
	r := &NyquistRenderer{}
	r.source = makeStubSource(64)
	r.pointsPerOctave = 12
	r.buildVertices()
	r.refreshBuffers = false
	prev := &r.vertices[0]

	r.buildVertices()
	if r.refreshBuffers {
		t.Error("unchanged capacity must not schedule buffer re-creation")
	}
	if &r.vertices[0] != prev {
		t.Error("unchanged capacity must reuse the vertex slice")
	}

	r.pointsPerOctave = 24
	r.buildVertices()
	if !r.refreshBuffers {
		t.Error("changed capacity must schedule buffer re-creation")
	}
	if len(r.vertices) != 24*144 {
		t.Errorf("buffer capacity %d after change, want %d", len(r.vertices), 24*144)
	}
}

func TestSegmentPacking(t *testing.T) {
	src := makeStubSource(5)
	src.phase = []complex128{1, 1i, -1, -1i, 1}
	src.magnitude = []float64{1, 2, 3, 4, 5}
	src.coherence = []float64{1, 0.9, 0.8, 0.7, 0.6}

	r := &NyquistRenderer{}
	r.source = src
	r.pointsPerOctave = 1
	emitted := r.buildVertices()
	if emitted != 4 {
		t.Fatalf("emitted %d points, want 4", emitted)
	}
	for k := 0; k < emitted; k++ {
		base := k * nyquistPointFloats
		start := complex(float64(r.vertices[base+0]), float64(r.vertices[base+4]))
		end := complex(float64(r.vertices[base+3]), float64(r.vertices[base+7]))
		wantStart := src.phase[k] * complex(src.magnitude[k], 0)
		wantEnd := src.phase[k+1] * complex(src.magnitude[k+1], 0)
		if cmplx.Abs(start-wantStart) > 1e-6 {
			t.Errorf("segment %d starts at %v, want %v", k, start, wantStart)
		}
		if cmplx.Abs(end-wantEnd) > 1e-6 {
			t.Errorf("segment %d ends at %v, want %v", k, end, wantEnd)
		}
		if got, want := r.vertices[base+8], float32(src.coherence[k]); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("segment %d coherence starts at %v, want %v", k, got, want)
		}
		if got, want := r.vertices[base+11], float32(src.coherence[k+1]); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("segment %d coherence ends at %v, want %v", k, got, want)
		}
	}
	// nothing written past the emitted prefix
	for i := emitted * nyquistPointFloats; i < len(r.vertices); i++ {
		if r.vertices[i] != 0 {
			t.Fatalf("vertex slot %d written beyond emitted prefix", i)
		}
	}
}

func TestExcessBinsClipped(t *testing.T) {
	// ppo=1 caps the buffer at 12 smoothed points; 40 bins are clipped
	// to the first 12, giving 11 segments
	r := &NyquistRenderer{}
	r.source = makeStubSource(40)
	r.pointsPerOctave = 1
	emitted := r.buildVertices()
	if emitted != 11 {
		t.Errorf("emitted %d points, want 11", emitted)
	}
	if uploaded := nyquistPointFloats * emitted; uploaded > len(r.vertices) {
		t.Errorf("upload of %d floats exceeds allocation %d", uploaded, len(r.vertices))
	}
}

func TestDefaultResolutionFitsCapacity(t *testing.T) {
	// a 4096-point FFT yields 2048 bins; at the default 12 points per
	// octave every frame must fill the buffer exactly once, with no
	// segment dropped by the bounds check
	r := &NyquistRenderer{}
	r.source = makeStubSource(2048)
	r.pointsPerOctave = 12
	emitted := r.buildVertices()
	if want := 12*12 - 1; emitted != want {
		t.Errorf("emitted %d points, want %d", emitted, want)
	}
	if uploaded := nyquistPointFloats * emitted; uploaded > len(r.vertices) {
		t.Errorf("upload of %d floats exceeds allocation %d", uploaded, len(r.vertices))
	}
}

func TestZeroPointsPerOctaveRendersNothing(t *testing.T) {
	r := &NyquistRenderer{}
	r.source = makeStubSource(64)
	r.pointsPerOctave = 12
	r.RenderSeries()
	if len(r.vertices) != 12*144 {
		t.Fatalf("buffer capacity %d after first frame, want %d", len(r.vertices), 12*144)
	}

	r.pointsPerOctave = 0
	r.RenderSeries()
	if len(r.vertices) != 0 {
		t.Errorf("buffer capacity %d with smoothing off, want 0", len(r.vertices))
	}
	if !r.refreshBuffers {
		t.Error("pending buffer re-creation must survive an empty frame")
	}
}

func TestInactiveSourceIsNoOp(t *testing.T) {
	src := makeStubSource(64)
	src.active = false
	r := &NyquistRenderer{}
	r.source = src
	r.pointsPerOctave = 12
	r.RenderSeries()
	if r.vertices != nil {
		t.Error("inactive source must not allocate or mutate the vertex buffer")
	}

	empty := &stubSource{active: true}
	r.source = empty
	r.RenderSeries()
	if r.vertices != nil {
		t.Error("empty source must not allocate or mutate the vertex buffer")
	}
}

func TestSynchronizeSettings(t *testing.T) {
	plot := NewNyquistPlot()
	plot.UpdateSettings(func(s *NyquistSettings) {
		s.PointsPerOctave = 24
		s.Coherence = false
		s.CoherenceThreshold = 0.4
	})
	item := NewSeriesItem(plot, makeStubSource(8))

	r := &NyquistRenderer{}
	r.Synchronize(item)
	if r.pointsPerOctave != 24 || r.coherence || r.coherenceThreshold != 0.4 {
		t.Errorf("settings not copied: ppo=%d coherence=%v threshold=%v",
			r.pointsPerOctave, r.coherence, r.coherenceThreshold)
	}
}

func TestSynchronizeWithoutCapabilityKeepsSettings(t *testing.T) {
	r := &NyquistRenderer{}
	r.pointsPerOctave = 12
	r.coherence = true
	r.coherenceThreshold = 0.7

	item := NewSeriesItem(&plainPlot{}, makeStubSource(8))
	r.Synchronize(item)
	if r.pointsPerOctave != 12 || !r.coherence || r.coherenceThreshold != 0.7 {
		t.Errorf("settings must persist without a provider: ppo=%d coherence=%v threshold=%v",
			r.pointsPerOctave, r.coherence, r.coherenceThreshold)
	}
}

// decliningPlot exposes the settings capability but never has a snapshot.
type decliningPlot struct {
	size Size
}

func (p *decliningPlot) Size() Size { return p.size }

func (p *decliningPlot) Bounds() (xMin, xMax, yMin, yMax float32) { return -1, 1, -1, 1 }

func (p *decliningPlot) NyquistSettings() (NyquistSettings, bool) {
	return NyquistSettings{}, false
}

func TestSynchronizeDecliningProviderKeepsSettings(t *testing.T) {
	r := &NyquistRenderer{}
	r.pointsPerOctave = 12
	r.coherence = true
	r.coherenceThreshold = 0.7

	item := NewSeriesItem(&decliningPlot{}, makeStubSource(8))
	r.Synchronize(item)
	if r.pointsPerOctave != 12 || !r.coherence || r.coherenceThreshold != 0.7 {
		t.Errorf("settings must persist when the provider declines: ppo=%d coherence=%v threshold=%v",
			r.pointsPerOctave, r.coherence, r.coherenceThreshold)
	}
}

func TestBeforeSplineNormalization(t *testing.T) {
	// two bins per group: phase vectors at 0 and 90 degrees, magnitudes 2
	// and 4. The smoothed point must have magnitude (2+4)/2 and point along
	// the unit vector of the averaged phase sum.
	src := &stubSource{
		active:    true,
		phase:     []complex128{1, 1i, 1, 1i},
		magnitude: []float64{2, 4, 2, 4},
		coherence: []float64{1, 1, 1, 1},
	}
	r := &NyquistRenderer{}
	r.source = src
	r.pointsPerOctave = 2
	emitted := r.buildVertices()
	if emitted != 1 {
		t.Fatalf("emitted %d points, want 1", emitted)
	}
	got := complex(float64(r.vertices[0]), float64(r.vertices[4]))
	dir := complex(1, 1) / complex(math.Sqrt2, 0)
	want := dir * complex(3, 0)
	if cmplx.Abs(got-want) > 1e-6 {
		t.Errorf("smoothed point %v, want %v", got, want)
	}
	if math.Abs(cmplx.Abs(got)-3) > 1e-6 {
		t.Errorf("smoothed magnitude %v, want 3", cmplx.Abs(got))
	}
}
