package main

import (
	mgl "github.com/go-gl/mathgl/mgl32"
)

// Plot is the owner of one or more series items. Concrete plots expose
// their settings through capability interfaces queried at synchronize time.
type Plot interface {
	Size() Size
	Bounds() (xMin, xMax, yMin, yMax float32)
}

// SeriesItem binds a data source to its owning plot and carries the
// per-series style the renderer copies each frame.
type SeriesItem struct {
	parent Plot
	source Source

	Color  [4]float32
	Weight float32
}

func NewSeriesItem(parent Plot, source Source) *SeriesItem {
	return &SeriesItem{
		parent: parent,
		source: source,
		Color:  [4]float32{0.12, 0.62, 0.95, 1},
		Weight: 2,
	}
}

func (item *SeriesItem) Parent() Plot {
	return item.parent
}

// NyquistSettings is the per-frame configuration snapshot a Nyquist series
// renderer consumes.
type NyquistSettings struct {
	PointsPerOctave    int
	Coherence          bool
	CoherenceThreshold float32
}

// NyquistSettingsProvider is implemented by plots that can supply Nyquist
// display settings. The bool result lets a provider decline (no snapshot
// available yet); the renderer then keeps its previous settings.
type NyquistSettingsProvider interface {
	NyquistSettings() (NyquistSettings, bool)
}

// NyquistPlot shows the complex transfer function on the complex plane.
type NyquistPlot struct {
	settings Box[NyquistSettings]
	size     Size

	XMin, XMax float32
	YMin, YMax float32
}

func NewNyquistPlot() *NyquistPlot {
	p := &NyquistPlot{
		XMin: -2, XMax: 2,
		YMin: -2, YMax: 2,
	}
	p.settings.Set(NyquistSettings{
		PointsPerOctave:    12,
		Coherence:          true,
		CoherenceThreshold: 0.7,
	})
	return p
}

func (p *NyquistPlot) Size() Size {
	return p.size
}

func (p *NyquistPlot) Bounds() (xMin, xMax, yMin, yMax float32) {
	return p.XMin, p.XMax, p.YMin, p.YMax
}

func (p *NyquistPlot) SetSize(s Size) {
	p.size = s
}

func (p *NyquistPlot) NyquistSettings() (NyquistSettings, bool) {
	return p.settings.Get(), true
}

func (p *NyquistPlot) UpdateSettings(f func(*NyquistSettings)) {
	s := p.settings.Get()
	f(&s)
	if s.PointsPerOctave < 0 {
		s.PointsPerOctave = 0
	}
	if s.CoherenceThreshold < 0 {
		s.CoherenceThreshold = 0
	}
	if s.CoherenceThreshold > 1 {
		s.CoherenceThreshold = 1
	}
	p.settings.Set(s)
}

// XYSeriesRenderer carries the state every series renderer shares: the
// bound item and source, plot bounds, style, and the projection matrix.
type XYSeriesRenderer struct {
	item   *SeriesItem
	source Source

	xMin, xMax float32
	yMin, yMax float32

	width, height int
	color         [4]float32
	weight        float32
	matrix        mgl.Mat4
}

// Synchronize copies bounds and style out of the item; called on the render
// thread before RenderSeries, never concurrently with it.
func (r *XYSeriesRenderer) Synchronize(item *SeriesItem) {
	r.item = item
	r.source = item.source
	r.color = item.Color
	r.weight = item.Weight
	if plot := item.Parent(); plot != nil {
		size := plot.Size()
		r.width = size.X
		r.height = size.Y
		r.xMin, r.xMax, r.yMin, r.yMax = plot.Bounds()
	}
	r.UpdateMatrix()
}

// UpdateMatrix recomputes the orthographic projection. yMax maps to the
// bottom of the viewport (screen-space y grows downward).
func (r *XYSeriesRenderer) UpdateMatrix() {
	r.matrix = mgl.Ortho(r.xMin, r.xMax, r.yMax, r.yMin, -1, 1)
}

func (r *XYSeriesRenderer) Source() Source {
	return r.source
}
