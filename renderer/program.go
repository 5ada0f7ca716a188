package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked shader program. Uniform values are kept on the Go
// side as well, so a reloaded program starts with the same values.
type Program struct {
	name      string
	id        uint32
	locations map[string]int32
	values    map[string]any
}

func NewProgram(name, vertexShaderSource, fragmentShaderSource string) (*Program, error) {
	id, err := newProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create program %s: %w", name, err)
	}
	return &Program{
		name:      name,
		id:        id,
		locations: make(map[string]int32),
		values:    make(map[string]any),
	}, nil
}

func (p *Program) Name() string { return p.name }

func (p *Program) ID() uint32 { return p.id }

// Bind makes the program current.
func (p *Program) Bind() { gl.UseProgram(p.id) }

func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
	p.id = 0
}

// Reload replaces the program with one built from new sources. On failure
// the old program stays in place.
func (p *Program) Reload(vertexShaderSource, fragmentShaderSource string) error {
	id, err := newProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return fmt.Errorf("failed to reload program %s: %w", p.name, err)
	}
	gl.DeleteProgram(p.id)
	p.id = id
	p.locations = make(map[string]int32)
	for name, v := range p.values {
		p.apply(name, v)
	}
	return nil
}

// Uniform sets a uniform. Uniforms the linker removed are ignored.
func (p *Program) Uniform(name string, v any) {
	p.values[name] = v
	p.apply(name, v)
}

// UniformSampler assigns a texture unit to a sampler uniform.
func (p *Program) UniformSampler(name string, unit int32) { p.Uniform(name, unit) }

// Value returns the last value set for a uniform.
func (p *Program) Value(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p *Program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (p *Program) apply(name string, v any) {
	loc := p.location(name)
	if loc == -1 {
		return
	}
	switch v := v.(type) {
	case float32:
		gl.ProgramUniform1f(p.id, loc, v)
	case int32:
		gl.ProgramUniform1i(p.id, loc, v)
	case int:
		gl.ProgramUniform1i(p.id, loc, int32(v))
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.ProgramUniform1i(p.id, loc, i)
	case mgl32.Vec2:
		gl.ProgramUniform2fv(p.id, loc, 1, &v[0])
	case mgl32.Vec3:
		gl.ProgramUniform3fv(p.id, loc, 1, &v[0])
	case mgl32.Vec4:
		gl.ProgramUniform4fv(p.id, loc, 1, &v[0])
	case mgl32.Mat3:
		gl.ProgramUniformMatrix3fv(p.id, loc, 1, false, &v[0])
	case mgl32.Mat4:
		gl.ProgramUniformMatrix4fv(p.id, loc, 1, false, &v[0])
	default:
		panic(fmt.Sprintf("program %s: unsupported uniform type %T for %s", p.name, v, name))
	}
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile %s shader: %v", stageName(shaderType), logText)
	}
	return shader, nil
}

func stageName(shaderType uint32) string {
	switch shaderType {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return "unknown"
}
