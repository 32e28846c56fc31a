package main

import (
	"fmt"
	"image"
	"os"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	mgl "github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type FontSizeInPoints = float64

type Font struct {
	font  *opentype.Font
	faces map[FontSizeInPoints]font.Face
}

func (f *Font) GetFace(size FontSizeInPoints) (font.Face, error) {
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	faceOpts := &opentype.FaceOptions{
		Size:    size,
		DPI:     96,
		Hinting: font.HintingFull,
	}
	face, err := opentype.NewFace(f.font, faceOpts)
	if err != nil {
		return nil, err
	}
	f.faces[size] = face
	return face, nil
}

// GetFaceImage rasterizes runes [0,cols*rows) into an alpha atlas of
// fixed-size tiles.
func (f *Font) GetFaceImage(face font.Face, sizeInTiles Size) (*image.Alpha, Size, error) {
	cols, rows := sizeInTiles.X, sizeInTiles.Y
	if cols <= 0 || rows <= 0 {
		return nil, Size{}, fmt.Errorf("sizeInTiles must be positive, got %v", sizeInTiles)
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	tileHeight := metrics.Height.Ceil()
	if tileHeight == 0 {
		tileHeight = ascent + descent
	}
	nGlyphs := cols * rows
	maxWidth := 0
	for i := range nGlyphs {
		r := rune(i)
		if adv, ok := face.GlyphAdvance(r); ok {
			if w := adv.Ceil(); w > maxWidth {
				maxWidth = w
			}
		}
	}
	if maxWidth <= 0 {
		adv, ok := face.GlyphAdvance('m')
		if !ok {
			return nil, Size{}, fmt.Errorf("font face does not provide a glyph for rune 'm'")
		}
		maxWidth = adv.Ceil()
	}

	atlas := image.NewAlpha(image.Rect(0, 0, maxWidth*cols, tileHeight*rows))
	for i := range nGlyphs {
		r := rune(i)
		col := i % cols
		row := i / cols
		dot := fixed.Point26_6{
			X: fixed.I(col * maxWidth),
			Y: fixed.I(row*tileHeight + ascent),
		}
		dstRect, mask, maskPt, _, ok := face.Glyph(dot, r)
		if !ok || mask == nil {
			continue
		}
		draw.Draw(atlas, dstRect, mask, maskPt, draw.Src)
	}
	return atlas, Size{X: maxWidth, Y: tileHeight}, nil
}

func LoadFontFromBytes(bytes []byte) (*Font, error) {
	f, err := opentype.Parse(bytes)
	if err != nil {
		return nil, err
	}
	return &Font{
		font:  f,
		faces: make(map[FontSizeInPoints]font.Face),
	}, nil
}

func LoadFontFromFile(name string) (*Font, error) {
	bytes, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return LoadFontFromBytes(bytes)
}

const (
	labelVertexShader = `#version 410 core
layout(location = 0) in vec2 a_position;
layout(location = 1) in vec2 a_texcoord;
uniform mat4 u_transform;
out vec2 v_texcoord;
void main(void) {
    gl_Position = u_transform * vec4(a_position, 0.0, 1.0);
    v_texcoord = a_texcoord;
}` + "\x00"
	labelFragmentShader = `#version 410 core
uniform sampler2D u_tex;
uniform vec4 u_color;
in vec2 v_texcoord;
out vec4 fragColor;
void main(void) {
    fragColor = vec4(u_color.rgb, u_color.a * texture(u_tex, v_texcoord).r);
}` + "\x00"

	labelAtlasCols = 16
	labelAtlasRows = 8
	labelMaxGlyphs = 512
	// x,y,s,t per vertex, 6 vertices per glyph quad
	labelGlyphFloats = 6 * 4
)

// LabelPainter draws text overlays (axis names, status line) from a font
// atlas texture. Best effort: construction fails without a usable font and
// the caller simply skips labels.
type LabelPainter struct {
	tex      Texture
	program  Program
	store    VertexStore
	tileSize Size

	uTransform int32
	uTex       int32
	uColor     int32

	vertices []float32
}

func NewLabelPainter(fontPath string, size FontSizeInPoints) (*LabelPainter, error) {
	fnt, err := LoadFontFromFile(fontPath)
	if err != nil {
		return nil, err
	}
	face, err := fnt.GetFace(size)
	if err != nil {
		return nil, err
	}
	atlas, tileSize, err := fnt.GetFaceImage(face, Size{X: labelAtlasCols, Y: labelAtlasRows})
	if err != nil {
		return nil, err
	}
	program, err := CreateProgram(labelVertexShader, labelFragmentShader)
	if err != nil {
		return nil, err
	}
	tex, err := CreateTexture()
	if err != nil {
		program.Close()
		return nil, err
	}
	bounds := atlas.Bounds().Size()
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8,
		int32(bounds.X), int32(bounds.Y),
		0, gl.RED, gl.UNSIGNED_BYTE,
		gl.Ptr(atlas.Pix))

	lp := &LabelPainter{
		tex:        tex,
		program:    program,
		tileSize:   tileSize,
		uTransform: program.GetUniformLocation("u_transform\x00"),
		uTex:       program.GetUniformLocation("u_tex\x00"),
		uColor:     program.GetUniformLocation("u_color\x00"),
		vertices:   make([]float32, 0, labelMaxGlyphs*labelGlyphFloats),
	}
	lp.store.Recreate(labelMaxGlyphs * labelGlyphFloats)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	return lp, nil
}

// DrawString queues text with its top-left corner at pixel (x, y).
func (lp *LabelPainter) DrawString(x, y int, s string) {
	px := float32(x)
	py := float32(y)
	w := float32(lp.tileSize.X)
	h := float32(lp.tileSize.Y)
	for _, r := range s {
		if int(r) >= labelAtlasCols*labelAtlasRows {
			r = '?'
		}
		if len(lp.vertices)+labelGlyphFloats > lp.store.Capacity() {
			return
		}
		col := int(r) % labelAtlasCols
		row := int(r) / labelAtlasCols
		s0 := float32(col) / labelAtlasCols
		t0 := float32(row) / labelAtlasRows
		s1 := s0 + 1.0/labelAtlasCols
		t1 := t0 + 1.0/labelAtlasRows
		x0, y0 := px, py
		x1, y1 := px+w, py+h
		lp.vertices = append(lp.vertices,
			x0, y0, s0, t0,
			x0, y1, s0, t1,
			x1, y1, s1, t1,
			x1, y1, s1, t1,
			x1, y0, s1, t0,
			x0, y0, s0, t0,
		)
		px += w
	}
}

// Render uploads and draws all queued glyphs, then clears the queue.
func (lp *LabelPainter) Render(color [4]float32) {
	if len(lp.vertices) == 0 {
		return
	}
	lp.program.Use()
	lp.store.Bind()
	lp.store.Upload(lp.vertices)
	lp.tex.Bind()
	gl.Uniform1i(lp.uTex, 0)
	gl.Uniform4f(lp.uColor, color[0], color[1], color[2], color[3])

	// pixel coordinates to NDC, y down
	ux := 2.0 / float32(fbSize.X)
	uy := 2.0 / float32(fbSize.Y)
	mScale := mgl.Scale3D(ux, -uy, 1)
	mTranslate := mgl.Translate3D(-1, 1, 0)
	mTransform := mTranslate.Mul4(mScale)
	gl.UniformMatrix4fv(lp.uTransform, 1, false, &mTransform[0])

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.EnableVertexAttribArray(0)
	gl.EnableVertexAttribArray(1)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(lp.vertices)/4))
	gl.DisableVertexAttribArray(1)
	gl.DisableVertexAttribArray(0)
	gl.Disable(gl.BLEND)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	lp.vertices = lp.vertices[:0]
}

func (lp *LabelPainter) Close() error {
	lp.store.Close()
	lp.tex.Close()
	return lp.program.Close()
}
