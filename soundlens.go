package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
)

type Options struct {
	LogLevel        string
	PointsPerOctave int
	SampleRate      int
	FFTSize         int

	// live mode
	Cutoff float64
	Q      float64
	Gain   float64

	// file mode
	RefPath  string
	MeasPath string

	FontPath string
}

func parseOptions() Options {
	var opts Options
	flag.StringVar(&opts.LogLevel, "loglevel", "info", "log level (debug|info|warn|error)")
	flag.IntVar(&opts.PointsPerOctave, "ppo", 12, "smoothing points per octave")
	flag.IntVar(&opts.SampleRate, "rate", 48000, "engine sample rate")
	flag.IntVar(&opts.FFTSize, "fft", 4096, "FFT block size")
	flag.Float64Var(&opts.Cutoff, "cutoff", 1000, "simulated DUT low-pass cutoff frequency (Hz)")
	flag.Float64Var(&opts.Q, "q", 0.707, "simulated DUT filter Q")
	flag.Float64Var(&opts.Gain, "gain", 0.25, "stimulus gain")
	flag.StringVar(&opts.RefPath, "ref", "", "reference audio file (wav/mp3); enables file mode with -meas")
	flag.StringVar(&opts.MeasPath, "meas", "", "measured audio file (wav/mp3)")
	flag.StringVar(&opts.FontPath, "font", "", "label font file (ttf/otf); labels off when empty")
	flag.Parse()
	return opts
}

func run(opts Options) error {
	tf := NewTransferFunction(opts.FFTSize, opts.SampleRate)

	var player *OtoPlayer
	title := "soundlens"
	if opts.RefPath != "" && opts.MeasPath != "" {
		reference, err := LoadAudioFile(opts.RefPath, opts.SampleRate)
		if err != nil {
			return fmt.Errorf("loading reference: %w", err)
		}
		measured, err := LoadAudioFile(opts.MeasPath, opts.SampleRate)
		if err != nil {
			return fmt.Errorf("loading measurement: %w", err)
		}
		blocks := FeedFilePair(reference, measured, opts.FFTSize, tf)
		if blocks == 0 {
			return fmt.Errorf("input shorter than one FFT block (%d frames)", opts.FFTSize)
		}
		slog.Info("file measurement loaded", "blocks", blocks)
		title = fmt.Sprintf("soundlens : %s / %s", opts.RefPath, opts.MeasPath)
	} else {
		if err := InitOtoContext(opts.SampleRate); err != nil {
			return fmt.Errorf("audio device: %w", err)
		}
		dut := NewLowPass(opts.SampleRate, opts.Cutoff, opts.Q)
		stimulus := NewStimulus(NewPinkNoise(1), dut, tf, opts.FFTSize, opts.Gain)
		player = StartStimulus(stimulus)
		slog.Info("live measurement started",
			"rate", opts.SampleRate, "fft", opts.FFTSize, "cutoff", opts.Cutoff)
	}

	app := NewApp(opts, tf, player)
	return WithGL(title, app)
}

func main() {
	opts := parseOptions()
	if err := InitLogger(opts.LogLevel); err != nil {
		log.Fatalf("%v\n", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("%v\n", err)
	}
}
