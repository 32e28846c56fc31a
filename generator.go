package main

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/ebitengine/oto/v3"
)

var otoContext *oto.Context

type OtoPlayer = oto.Player

func InitOtoContext(sampleRate int) error {
	otoContextOptions := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}
	ctx, readyChan, err := oto.NewContext(otoContextOptions)
	if err != nil {
		return err
	}
	<-readyChan
	otoContext = ctx
	return nil
}

// PinkNoise generates pink noise with the Paul Kellet filter approximation
// (-3 dB/octave, flat enough across the audio band for excitation use).
type PinkNoise struct {
	rng                        *rand.Rand
	b0, b1, b2, b3, b4, b5, b6 float64
}

func NewPinkNoise(seed int64) *PinkNoise {
	return &PinkNoise{rng: rand.New(rand.NewSource(seed))}
}

func (p *PinkNoise) Next() Smp {
	white := p.rng.Float64()*2 - 1
	p.b0 = 0.99886*p.b0 + white*0.0555179
	p.b1 = 0.99332*p.b1 + white*0.0750759
	p.b2 = 0.96900*p.b2 + white*0.1538520
	p.b3 = 0.86650*p.b3 + white*0.3104856
	p.b4 = 0.55000*p.b4 + white*0.5329522
	p.b5 = -0.7616*p.b5 - white*0.0168980
	pink := p.b0 + p.b1 + p.b2 + p.b3 + p.b4 + p.b5 + p.b6 + white*0.5362
	p.b6 = white * 0.115926
	return pink * 0.11
}

// BlockSink receives one reference and one measured block per FFT frame.
type BlockSink interface {
	Feed(reference, measured []Smp)
}

// Stimulus is the pull-driven excitation path: the audio device reads pink
// noise from it, and every generated sample is teed through the device under
// test into the measurement sink, one full FFT block at a time.
//
// Read runs on the audio goroutine; the sink handles publication to the
// render thread itself.
type Stimulus struct {
	gen  *PinkNoise
	dut  *Biquad
	sink BlockSink
	gain Smp

	reference []Smp
	measured  []Smp
	fill      int
}

func NewStimulus(gen *PinkNoise, dut *Biquad, sink BlockSink, blockSize int, gain Smp) *Stimulus {
	return &Stimulus{
		gen:       gen,
		dut:       dut,
		sink:      sink,
		gain:      gain,
		reference: make([]Smp, blockSize),
		measured:  make([]Smp, blockSize),
	}
}

// Read fills p with interleaved stereo float32 LE frames.
func (s *Stimulus) Read(p []byte) (int, error) {
	const frameBytes = 2 * 4
	frames := len(p) / frameBytes
	for f := 0; f < frames; f++ {
		v := s.gen.Next() * s.gain
		bits := math.Float32bits(float32(v))
		off := f * frameBytes
		binary.LittleEndian.PutUint32(p[off:], bits)
		binary.LittleEndian.PutUint32(p[off+4:], bits)

		s.reference[s.fill] = v
		s.measured[s.fill] = s.dut.Process(v)
		s.fill++
		if s.fill == len(s.reference) {
			s.sink.Feed(s.reference, s.measured)
			s.fill = 0
		}
	}
	return frames * frameBytes, nil
}

// StartStimulus wires the stimulus into the audio device and starts playback.
func StartStimulus(s *Stimulus) *OtoPlayer {
	player := otoContext.NewPlayer(s)
	player.Play()
	return player
}
