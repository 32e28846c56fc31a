package main

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

type Texture struct {
	tex uint32
}

func (t Texture) Bind() {
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
}

func CreateTexture() (Texture, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	return Texture{tex}, nil
}

func (t Texture) Close() error {
	if t.tex != 0 {
		gl.DeleteTextures(1, &t.tex)
		t.tex = 0
	}
	return nil
}

type Shader struct {
	shader uint32
}

func GetShaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := make([]uint8, length)
	var logLen int32
	gl.GetShaderInfoLog(shader, length, &logLen, &log[0])
	return string(log[:logLen])
}

func CreateShader(shaderType uint32, source string) (Shader, error) {
	shader := gl.CreateShader(shaderType)
	data := gl.Str(source)
	length := int32(len(source))
	gl.ShaderSource(shader, 1, &data, &length)
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		return Shader{}, fmt.Errorf("shader compilation failed: %s", GetShaderInfoLog(shader))
	}
	return Shader{shader}, nil
}

func (s Shader) Close() error {
	if s.shader != 0 {
		gl.DeleteShader(s.shader)
		s.shader = 0
	}
	return nil
}

type Program struct {
	program uint32
	shaders []Shader
}

func GetProgramInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := make([]uint8, length)
	var logLen int32
	gl.GetProgramInfoLog(program, length, &logLen, &log[0])
	return string(log[:logLen])
}

// CreateProgram links a vertex+fragment program.
func CreateProgram(vertexShader string, fragmentShader string) (Program, error) {
	return createProgram([]stageSource{
		{gl.VERTEX_SHADER, vertexShader},
		{gl.FRAGMENT_SHADER, fragmentShader},
	})
}

// CreateGeometryProgram links a vertex+geometry+fragment program.
func CreateGeometryProgram(vertexShader, geometryShader, fragmentShader string) (Program, error) {
	return createProgram([]stageSource{
		{gl.VERTEX_SHADER, vertexShader},
		{gl.GEOMETRY_SHADER, geometryShader},
		{gl.FRAGMENT_SHADER, fragmentShader},
	})
}

type stageSource struct {
	shaderType uint32
	source     string
}

func createProgram(stages []stageSource) (Program, error) {
	shaders := make([]Shader, 0, len(stages))
	for _, stage := range stages {
		s, err := CreateShader(stage.shaderType, stage.source)
		if err != nil {
			for _, prev := range shaders {
				prev.Close()
			}
			return Program{}, err
		}
		shaders = append(shaders, s)
	}
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s.shader)
	}
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return Program{}, fmt.Errorf("program link failed: %s", GetProgramInfoLog(program))
	}
	return Program{program, shaders}, nil
}

func (p Program) Valid() bool {
	return p.program != 0
}

func (p Program) GetAttribLocation(name string) int32 {
	return gl.GetAttribLocation(p.program, gl.Str(name))
}

func (p Program) GetUniformLocation(name string) int32 {
	return gl.GetUniformLocation(p.program, gl.Str(name))
}

func (p Program) Use() {
	gl.UseProgram(p.program)
}

func (p Program) Close() error {
	for i := range p.shaders {
		if err := p.shaders[i].Close(); err != nil {
			return err
		}
	}
	if p.program != 0 {
		gl.DeleteProgram(p.program)
		p.program = 0
	}
	return nil
}

// VertexStore owns a vertex array + vertex buffer pair. Recreate drops the
// old pair and allocates storage for capacityFloats floats, so attribute
// layout can be configured against the fresh array.
type VertexStore struct {
	vao      uint32
	vbo      uint32
	capacity int
}

func (vs *VertexStore) Recreate(capacityFloats int) {
	vs.release()
	gl.GenVertexArrays(1, &vs.vao)
	gl.GenBuffers(1, &vs.vbo)
	gl.BindVertexArray(vs.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vs.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*capacityFloats, nil, gl.DYNAMIC_DRAW)
	vs.capacity = capacityFloats
}

func (vs *VertexStore) Bind() {
	gl.BindVertexArray(vs.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vs.vbo)
}

// Upload copies data into the front of the buffer. Never grows the
// allocation; the caller bounds data by the recreated capacity.
func (vs *VertexStore) Upload(data []float32) {
	if len(data) == 0 || len(data) > vs.capacity {
		return
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, 4*len(data), gl.Ptr(data))
}

func (vs *VertexStore) Capacity() int {
	return vs.capacity
}

func (vs *VertexStore) release() {
	if vs.vbo != 0 {
		gl.DeleteBuffers(1, &vs.vbo)
		vs.vbo = 0
	}
	if vs.vao != 0 {
		gl.DeleteVertexArrays(1, &vs.vao)
		vs.vao = 0
	}
	vs.capacity = 0
}

func (vs *VertexStore) Close() error {
	vs.release()
	return nil
}
