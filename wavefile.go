package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dh1tw/gosamplerate"
	audio "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mitchellh/go-homedir"
)

// ExpandPath resolves a leading ~ in user-supplied paths.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}

// LoadAudioFile reads a WAV or MP3 file into a mono float64 buffer at
// targetRate, resampling when the file rate differs.
func LoadAudioFile(path string, targetRate int) ([]Smp, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	var samples []Smp
	var rate int
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, rate, err = loadWav(path)
	case ".mp3":
		samples, rate, err = loadMp3(path)
	default:
		return nil, fmt.Errorf("unsupported audio file format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if rate != targetRate {
		samples, err = resampleMono(samples, float64(targetRate)/float64(rate))
		if err != nil {
			return nil, err
		}
	}
	return samples, nil
}

func loadWav(path string) ([]Smp, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, 0, fmt.Errorf("%s: no format information", path)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return bufferToMono(buf, bitDepth), buf.Format.SampleRate, nil
}

// bufferToMono averages the interleaved channels of a PCM buffer into mono
// floats normalized to [-1,1].
func bufferToMono(buf *audio.IntBuffer, bitDepth int) []Smp {
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	return monoMix(buf.Data, buf.Format.NumChannels, scale)
}

func loadMp3(path string) ([]Smp, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}
	// decoder output is 16-bit LE stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	frames := len(raw) / 4
	samples := make([]Smp, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(raw[4*i:]))
		r := int16(binary.LittleEndian.Uint16(raw[4*i+2:]))
		samples[i] = (Smp(l) + Smp(r)) / 2 / 32768
	}
	return samples, dec.SampleRate(), nil
}

// monoMix averages interleaved integer channels into mono floats.
func monoMix(data []int, channels int, scale float64) []Smp {
	frames := len(data) / channels
	out := make([]Smp, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[i*channels+ch])
		}
		out[i] = sum / float64(channels) * scale
	}
	return out
}

func resampleMono(samples []Smp, ratio float64) ([]Smp, error) {
	if !gosamplerate.IsValidRatio(ratio) {
		return nil, fmt.Errorf("unsupported resampling ratio %g", ratio)
	}
	in := make([]float32, len(samples))
	for i, v := range samples {
		in[i] = float32(v)
	}
	out, err := gosamplerate.Simple(in, ratio, 1, gosamplerate.SRC_SINC_FASTEST)
	if err != nil {
		return nil, err
	}
	result := make([]Smp, len(out))
	for i, v := range out {
		result[i] = Smp(v)
	}
	return result, nil
}

// FeedFilePair runs both loaded responses through the sink one FFT block at
// a time, Welch-averaging over the whole file.
func FeedFilePair(reference, measured []Smp, blockSize int, sink BlockSink) int {
	n := min(len(reference), len(measured))
	blocks := 0
	for off := 0; off+blockSize <= n; off += blockSize / 2 {
		sink.Feed(reference[off:off+blockSize], measured[off:off+blockSize])
		blocks++
	}
	return blocks
}
