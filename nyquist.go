package main

import (
	"log/slog"
	"math/cmplx"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

const (
	nyquistVertexShader = `#version 410 core
layout(location = 0) in vec4 a_re;
layout(location = 1) in vec4 a_im;
layout(location = 2) in vec4 a_coherence;
out VertexData {
    vec4 re;
    vec4 im;
    vec4 coherence;
} vs_out;
void main(void) {
    vs_out.re = a_re;
    vs_out.im = a_im;
    vs_out.coherence = a_coherence;
}` + "\x00"

	// each point carries one cubic segment; expand it into a thick polyline
	nyquistGeometryShader = `#version 410 core
layout(points) in;
layout(triangle_strip, max_vertices = 62) out;

uniform mat4 matrix;
uniform vec2 screen;
uniform float width;

in VertexData {
    vec4 re;
    vec4 im;
    vec4 coherence;
} vs_in[];

out float v_coherence;

const int STEPS = 30;

vec4 weights(float t) {
    float mt = 1.0 - t;
    return vec4(mt * mt * mt, 3.0 * mt * mt * t, 3.0 * mt * t * t, t * t * t);
}

vec2 curveAt(float t) {
    vec4 w = weights(t);
    return vec2(dot(w, vs_in[0].re), dot(w, vs_in[0].im));
}

void emitPair(vec2 p, vec2 dir, float coherence) {
    vec2 normal = normalize(vec2(-dir.y, dir.x));
    vec2 shift = normal * width / screen;
    vec4 clip = matrix * vec4(p, 0.0, 1.0);
    v_coherence = coherence;
    gl_Position = clip + vec4(shift, 0.0, 0.0);
    EmitVertex();
    v_coherence = coherence;
    gl_Position = clip - vec4(shift, 0.0, 0.0);
    EmitVertex();
}

void main(void) {
    float dt = 1.0 / float(STEPS);
    for (int i = 0; i <= STEPS; ++i) {
        float t = float(i) * dt;
        vec2 p = curveAt(t);
        vec2 ahead = curveAt(clamp(t + dt, 0.0, 1.0));
        vec2 behind = curveAt(clamp(t - dt, 0.0, 1.0));
        vec2 dir = ahead - behind;
        if (length(dir) < 1e-9) {
            dir = vec2(1.0, 0.0);
        }
        float coherence = dot(weights(t), vs_in[0].coherence);
        emitPair(p, dir, coherence);
    }
    EndPrimitive();
}` + "\x00"

	nyquistFragmentShader = `#version 410 core
uniform vec4 m_color;
uniform float coherenceThreshold;
uniform float coherenceAlpha;

in float v_coherence;
out vec4 fragColor;

void main(void) {
    float alpha = m_color.a;
    if (coherenceAlpha > 0.5) {
        float fade = smoothstep(coherenceThreshold * 0.5, coherenceThreshold, v_coherence);
        alpha *= fade;
    } else if (v_coherence < coherenceThreshold) {
        discard;
    }
    fragColor = vec4(m_color.rgb, alpha);
}` + "\x00"
)

// floats per emitted point: 4 reals, 4 imaginaries, 4 coherence values
const nyquistPointFloats = 12

// NyquistRenderer draws a spline-smoothed Nyquist curve of its source.
// It runs exclusively on the render thread.
type NyquistRenderer struct {
	XYSeriesRenderer

	program Program
	store   VertexStore

	widthUniform              int32
	colorUniform              int32
	matrixUniform             int32
	screenUniform             int32
	coherenceThresholdUniform int32
	coherenceAlphaUniform     int32

	pointsPerOctave    int
	coherence          bool
	coherenceThreshold float32

	vertices       []float32
	refreshBuffers bool
}

// NewNyquistRenderer compiles and links the shader pipeline. A link failure
// is logged once; the renderer stays usable but draws nothing.
func NewNyquistRenderer() *NyquistRenderer {
	r := &NyquistRenderer{}
	program, err := CreateGeometryProgram(nyquistVertexShader, nyquistGeometryShader, nyquistFragmentShader)
	if err != nil {
		slog.Error("NyquistRenderer", "error", err)
		return r
	}
	r.program = program
	r.widthUniform = program.GetUniformLocation("width\x00")
	r.colorUniform = program.GetUniformLocation("m_color\x00")
	r.matrixUniform = program.GetUniformLocation("matrix\x00")
	r.screenUniform = program.GetUniformLocation("screen\x00")
	r.coherenceThresholdUniform = program.GetUniformLocation("coherenceThreshold\x00")
	r.coherenceAlphaUniform = program.GetUniformLocation("coherenceAlpha\x00")
	return r
}

// Synchronize copies bounds and style from the item, then pulls display
// settings from the owning plot when it provides them. A parent without the
// capability leaves the previous settings in place.
func (r *NyquistRenderer) Synchronize(item *SeriesItem) {
	r.XYSeriesRenderer.Synchronize(item)

	if provider, ok := item.Parent().(NyquistSettingsProvider); ok {
		if settings, ok := provider.NyquistSettings(); ok {
			r.pointsPerOctave = settings.PointsPerOctave
			r.coherence = settings.Coherence
			r.coherenceThreshold = settings.CoherenceThreshold
		}
	}
}

// RenderSeries builds the segment vertices for the current frame, uploads
// the written prefix and issues the point draw the geometry stage expands.
func (r *NyquistRenderer) RenderSeries() {
	if r.source == nil || !r.source.Active() || r.source.Size() == 0 {
		return
	}

	emitted := r.buildVertices()

	if emitted == 0 || !r.program.Valid() {
		return
	}
	r.program.Use()
	gl.UniformMatrix4fv(r.matrixUniform, 1, false, &r.matrix[0])
	gl.Uniform2f(r.screenUniform, float32(r.width), float32(r.height))
	gl.Uniform1f(r.widthUniform, r.weight*contentScale)
	gl.Uniform4f(r.colorUniform, r.color[0], r.color[1], r.color[2], r.color[3])
	gl.Uniform1f(r.coherenceThresholdUniform, r.coherenceThreshold)
	gl.Uniform1f(r.coherenceAlphaUniform, boolUniform(r.coherence))

	if r.refreshBuffers {
		r.store.Recreate(len(r.vertices))
		stride := int32(nyquistPointFloats * 4)
		gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, stride, 0)
		gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, stride, 4*4)
		gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, 8*4)
	} else {
		r.store.Bind()
	}
	r.store.Upload(r.vertices[:nyquistPointFloats*emitted])

	gl.EnableVertexAttribArray(0)
	gl.EnableVertexAttribArray(1)
	gl.EnableVertexAttribArray(2)
	gl.DrawArrays(gl.POINTS, 0, int32(emitted))
	gl.DisableVertexAttribArray(2)
	gl.DisableVertexAttribArray(1)
	gl.DisableVertexAttribArray(0)

	r.refreshBuffers = false
}

// buildVertices runs the spline accumulation over the source bins and packs
// completed segments into the vertex slice. Returns the emitted point count.
//
// Capacity is pointsPerOctave * 12 floats per point * 12 octaves. The slice
// is reallocated only when that value changes, which also schedules GPU
// buffer re-creation.
func (r *NyquistRenderer) buildVertices() int {
	maxBufferSize := r.pointsPerOctave * 12 * 12
	if len(r.vertices) != maxBufferSize {
		r.vertices = make([]float32, maxBufferSize)
		r.refreshBuffers = true
	}

	// the buffer holds 12 octaves of smoothed points; excess bins are
	// clipped rather than fed into segments that cannot be stored
	size := min(r.source.Size(), 12*r.pointsPerOctave*r.pointsPerOctave)

	i := 0
	emitted := 0

	var phaseSum complex128
	var magnitudeSum, coherenceSum float64

	accumulate := func(k int) {
		phaseSum += r.source.Phase(k)
		magnitudeSum += r.source.MagnitudeRaw(k)
		coherenceSum += r.source.Coherence(k)
	}

	// mean response over the group: unit direction of the averaged phase
	// vector, scaled by the averaged magnitude
	before := func(count int) (complex128, float64) {
		n := complex(float64(count), 0)
		c := phaseSum / n
		if abs := cmplx.Abs(c); abs > 0 {
			c /= complex(abs, 0)
		}
		c *= complex(magnitudeSum/float64(count), 0)
		a := coherenceSum / float64(count)
		phaseSum = 0
		magnitudeSum = 0
		coherenceSum = 0
		return c, a
	}

	collected := func(ac [4]complex128, c [4]float64) {
		if i+nyquistPointFloats > maxBufferSize {
			slog.Error("NyquistRenderer: vertex buffer out of range", "cursor", i, "capacity", maxBufferSize)
			return
		}
		r.vertices[i+0] = float32(real(ac[0]))
		r.vertices[i+1] = float32(real(ac[1]))
		r.vertices[i+2] = float32(real(ac[2]))
		r.vertices[i+3] = float32(real(ac[3]))

		r.vertices[i+4] = float32(imag(ac[0]))
		r.vertices[i+5] = float32(imag(ac[1]))
		r.vertices[i+6] = float32(imag(ac[2]))
		r.vertices[i+7] = float32(imag(ac[3]))

		r.vertices[i+8] = float32(c[0])
		r.vertices[i+9] = float32(c[1])
		r.vertices[i+10] = float32(c[2])
		r.vertices[i+11] = float32(c[3])
		emitted++
		i += nyquistPointFloats
	}

	iterateForSpline(r.pointsPerOctave, size, accumulate, before, collected)
	return emitted
}

func (r *NyquistRenderer) Close() error {
	r.store.Close()
	return r.program.Close()
}

func boolUniform(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
