package main

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

// Source is a per-frequency-bin series as consumed by the series renderers.
// Accessors are only called from the render thread; implementations are
// responsible for any coordination with their producing side.
type Source interface {
	Active() bool
	Size() int
	// Phase returns the unit phase vector of bin i.
	Phase(i int) complex128
	// MagnitudeRaw returns the linear (non-dB) magnitude of bin i.
	MagnitudeRaw(i int) float64
	// Coherence returns the measurement reliability of bin i in [0,1].
	Coherence(i int) float64
}

// tfSnapshot is one published view of the estimator state. Snapshots are
// immutable after publication.
type tfSnapshot struct {
	phase     []complex128
	magnitude []float64
	coherence []float64
}

// TransferFunction estimates H(f) = Sxy/Sxx between a reference and a
// measured channel, with exponentially averaged auto and cross spectra so
// the per-bin coherence carries information.
//
// Feed runs on the processing goroutine; the Source accessors run on the
// render thread against the snapshot captured by the latest Refresh call.
type TransferFunction struct {
	fftSize    int
	sampleRate int
	forgetting float64

	win     []float64
	scratch []float64

	sxx, syy []float64
	sxy      []complex128
	averages int

	published Box[*tfSnapshot]
	current   *tfSnapshot
}

const defaultForgetting = 0.92

func NewTransferFunction(fftSize, sampleRate int) *TransferFunction {
	bins := fftSize / 2
	win := make([]float64, fftSize)
	for i := range win {
		win[i] = 1
	}
	window.Hann(win)
	return &TransferFunction{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		forgetting: defaultForgetting,
		win:        win,
		scratch:    make([]float64, fftSize),
		sxx:        make([]float64, bins),
		syy:        make([]float64, bins),
		sxy:        make([]complex128, bins),
	}
}

func (tf *TransferFunction) FFTSize() int {
	return tf.fftSize
}

func (tf *TransferFunction) SampleRate() int {
	return tf.sampleRate
}

// Feed consumes one block of fftSize frames from both channels and
// publishes an updated snapshot. Short blocks are ignored.
func (tf *TransferFunction) Feed(reference, measured []Smp) {
	if len(reference) < tf.fftSize || len(measured) < tf.fftSize {
		return
	}
	specX := tf.spectrum(reference)
	specY := tf.spectrum(measured)

	lambda := tf.forgetting
	if tf.averages == 0 {
		lambda = 0
	}
	for i := range tf.sxx {
		x := specX[i]
		y := specY[i]
		tf.sxx[i] = lambda*tf.sxx[i] + (1-lambda)*(real(x)*real(x)+imag(x)*imag(x))
		tf.syy[i] = lambda*tf.syy[i] + (1-lambda)*(real(y)*real(y)+imag(y)*imag(y))
		tf.sxy[i] = complex(lambda, 0)*tf.sxy[i] + complex(1-lambda, 0)*(y*cmplx.Conj(x))
	}
	tf.averages++
	tf.publish()
}

func (tf *TransferFunction) spectrum(block []Smp) []complex128 {
	for i := 0; i < tf.fftSize; i++ {
		tf.scratch[i] = block[i] * tf.win[i]
	}
	return fft.FFTReal(tf.scratch)
}

func (tf *TransferFunction) publish() {
	bins := len(tf.sxx)
	snap := &tfSnapshot{
		phase:     make([]complex128, bins),
		magnitude: make([]float64, bins),
		coherence: make([]float64, bins),
	}
	for i := range tf.sxx {
		sxx := tf.sxx[i]
		syy := tf.syy[i]
		sxy := tf.sxy[i]
		if sxx <= 0 {
			snap.phase[i] = 1
			continue
		}
		h := sxy / complex(sxx, 0)
		mag := cmplx.Abs(h)
		snap.magnitude[i] = mag
		if mag > 0 {
			snap.phase[i] = h / complex(mag, 0)
		} else {
			snap.phase[i] = 1
		}
		if tf.averages > 1 && syy > 0 {
			gamma := (real(sxy)*real(sxy) + imag(sxy)*imag(sxy)) / (sxx * syy)
			snap.coherence[i] = math.Min(gamma, 1)
		}
	}
	tf.published.Set(snap)
}

// Refresh captures the latest published snapshot for this frame's reads.
// Called on the render thread.
func (tf *TransferFunction) Refresh() {
	tf.current = tf.published.Get()
}

func (tf *TransferFunction) Active() bool {
	return tf.current != nil
}

func (tf *TransferFunction) Size() int {
	if tf.current == nil {
		return 0
	}
	return len(tf.current.phase)
}

func (tf *TransferFunction) Phase(i int) complex128 {
	return tf.current.phase[i]
}

func (tf *TransferFunction) MagnitudeRaw(i int) float64 {
	return tf.current.magnitude[i]
}

func (tf *TransferFunction) Coherence(i int) float64 {
	return tf.current.coherence[i]
}
