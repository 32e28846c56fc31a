package main

import (
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var ppoSteps = []int{0, 3, 6, 9, 12, 24, 48}

type App struct {
	opts      Options
	isRunning bool

	plot     *NyquistPlot
	item     *SeriesItem
	renderer *NyquistRenderer
	tf       *TransferFunction
	player   *OtoPlayer
	labels   *LabelPainter
}

func NewApp(opts Options, tf *TransferFunction, player *OtoPlayer) *App {
	plot := NewNyquistPlot()
	plot.UpdateSettings(func(s *NyquistSettings) {
		s.PointsPerOctave = opts.PointsPerOctave
	})
	return &App{
		opts:      opts,
		isRunning: true,
		plot:      plot,
		item:      NewSeriesItem(plot, tf),
		tf:        tf,
		player:    player,
	}
}

func (app *App) Init() error {
	slog.Info("Init")
	app.renderer = NewNyquistRenderer()
	if app.opts.FontPath != "" {
		labels, err := NewLabelPainter(app.opts.FontPath, 12)
		if err != nil {
			slog.Warn("labels disabled", "error", err)
		} else {
			app.labels = labels
		}
	}
	return nil
}

func (app *App) IsRunning() bool {
	return app.isRunning
}

func (app *App) OnKey(key glfw.Key, scancode int, action glfw.Action, modes glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		app.isRunning = false
	case glfw.KeyC:
		app.plot.UpdateSettings(func(s *NyquistSettings) {
			s.Coherence = !s.Coherence
		})
	case glfw.KeyMinus:
		app.plot.UpdateSettings(func(s *NyquistSettings) {
			s.PointsPerOctave = stepPPO(s.PointsPerOctave, -1)
		})
	case glfw.KeyEqual:
		app.plot.UpdateSettings(func(s *NyquistSettings) {
			s.PointsPerOctave = stepPPO(s.PointsPerOctave, 1)
		})
	case glfw.KeyDown:
		app.plot.UpdateSettings(func(s *NyquistSettings) {
			s.CoherenceThreshold -= 0.05
		})
	case glfw.KeyUp:
		app.plot.UpdateSettings(func(s *NyquistSettings) {
			s.CoherenceThreshold += 0.05
		})
	case glfw.KeyY:
		app.copyMeasurement()
	}
}

func stepPPO(current, dir int) int {
	idx := 0
	for i, v := range ppoSteps {
		if v == current {
			idx = i
			break
		}
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(ppoSteps) {
		idx = len(ppoSteps) - 1
	}
	return ppoSteps[idx]
}

func (app *App) OnFramebufferSize(width, height int) {
	slog.Debug("OnFramebufferSize", "width", width, "height", height)
	app.plot.SetSize(Size{X: width, Y: height})
}

func (app *App) Render() error {
	app.tf.Refresh()
	app.plot.SetSize(fbSize)
	app.renderer.Synchronize(app.item)
	app.renderer.RenderSeries()
	if app.labels != nil {
		settings, _ := app.plot.NyquistSettings()
		app.labels.DrawString(8, 8, fmt.Sprintf(
			"points/octave %d  coherence %v  threshold %.2f",
			settings.PointsPerOctave, settings.Coherence, settings.CoherenceThreshold))
		app.labels.DrawString(fbSize.X-40, fbSize.Y/2, "Re")
		app.labels.DrawString(fbSize.X/2, 8+app.labels.tileSize.Y*2, "Im")
		app.labels.Render([4]float32{0.8, 0.8, 0.8, 1})
	}
	return nil
}

func (app *App) Update() error {
	return nil
}

// copyMeasurement puts the current per-bin response on the system clipboard
// as CSV.
func (app *App) copyMeasurement() {
	src := app.renderer.Source()
	if src == nil || !src.Active() || src.Size() == 0 {
		return
	}
	binWidth := float64(app.tf.SampleRate()) / float64(app.tf.FFTSize())
	var b strings.Builder
	b.WriteString("frequency,magnitude,phase_deg,coherence\n")
	for i := 0; i < src.Size(); i++ {
		deg := cmplx.Phase(src.Phase(i)) * 180 / math.Pi
		fmt.Fprintf(&b, "%.1f,%.6g,%.2f,%.3f\n", float64(i)*binWidth, src.MagnitudeRaw(i), deg, src.Coherence(i))
	}
	if err := clipboard.WriteAll(b.String()); err != nil {
		slog.Warn("clipboard write failed", "error", err)
		return
	}
	slog.Info("measurement copied to clipboard", "bins", src.Size())
}

func (app *App) Close() error {
	slog.Info("Close")
	if app.player != nil {
		app.player.Close()
	}
	if app.labels != nil {
		app.labels.Close()
	}
	if app.renderer != nil {
		app.renderer.Close()
	}
	return nil
}
