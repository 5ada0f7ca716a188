package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Program names.
const (
	PhongLighting  = "phong_lighting"
	TextureProgram = "texture_program"
)

type Stage int

const (
	Vertex Stage = iota
	Fragment
)

// Ext is the file extension used for a stage on disk.
func (s Stage) Ext() string {
	if s == Vertex {
		return ".glslv"
	}
	return ".glslf"
}

func (s Stage) String() string {
	if s == Vertex {
		return "vertex"
	}
	return "fragment"
}

// Blinn-Phong lighting of a textured surface in view space.

const phongVertexShaderSource = `#version 410 core
layout (location = 0) in vec3 in_position;
layout (location = 1) in vec3 in_normal;
layout (location = 2) in vec2 in_texture_coord;

uniform mat4 projection_matrix;
uniform mat4 model_view_matrix;
uniform mat4 model_view_matrix_inverse_transpose;

out vec3 view_position;
out vec3 view_normal;
out vec2 texture_coord;

void main() {
    vec4 p = model_view_matrix * vec4(in_position, 1.0);
    view_position = p.xyz;
    view_normal = normalize((model_view_matrix_inverse_transpose * vec4(in_normal, 0.0)).xyz);
    texture_coord = in_texture_coord;
    gl_Position = projection_matrix * p;
}
`

const phongFragmentShaderSource = `#version 410 core
in vec3 view_position;
in vec3 view_normal;
in vec2 texture_coord;

uniform vec3  light_ambient;
uniform vec3  light_diffuse;
uniform vec3  light_specular;
uniform vec3  light_position;

uniform vec3  material_ambient;
uniform vec3  material_diffuse;
uniform vec3  material_specular;
uniform float material_shininess;
uniform float material_opacity;

uniform sampler2D color_texture_aniso;
uniform sampler2D color_texture_nearest;
// fragments left of this x coordinate sample with the anisotropic filter,
// the rest with nearest. Negative disables the split.
uniform float filter_split;

layout (location = 0) out vec4 out_color;

void main() {
    vec3 n = normalize(view_normal);
    vec3 l = normalize(light_position - view_position);
    vec3 v = normalize(-view_position);
    vec3 h = normalize(l + v);

    vec4 tex = texture(color_texture_aniso, texture_coord);
    if (filter_split >= 0.0 && gl_FragCoord.x > filter_split) {
        tex = texture(color_texture_nearest, texture_coord);
    }

    float d = max(dot(n, l), 0.0);
    float s = d > 0.0 ? pow(max(dot(n, h), 0.0), material_shininess) : 0.0;

    vec3 c = light_ambient * material_ambient
           + light_diffuse * material_diffuse * tex.rgb * d
           + light_specular * material_specular * s;

    out_color = vec4(c, material_opacity * tex.a);
}
`

// Pass-through textured quad.

const textureVertexShaderSource = `#version 410 core
layout (location = 0) in vec3 in_position;
layout (location = 2) in vec2 in_texture_coord;

uniform mat4 mvp;

out vec2 texture_coord;

void main() {
    texture_coord = in_texture_coord;
    gl_Position = mvp * vec4(in_position, 1.0);
}
`

const textureFragmentShaderSource = `#version 410 core
in vec2 texture_coord;

uniform sampler2D in_texture;

layout (location = 0) out vec4 out_color;

void main() {
    out_color = texture(in_texture, texture_coord);
}
`

var builtin = map[string][2]string{
	PhongLighting:  {phongVertexShaderSource, phongFragmentShaderSource},
	TextureProgram: {textureVertexShaderSource, textureFragmentShaderSource},
}

// Names lists the programs with built-in sources.
func Names() []string { return []string{PhongLighting, TextureProgram} }

// Builtin returns the compiled-in source for a program stage.
func Builtin(name string, stage Stage) (string, error) {
	src, ok := builtin[name]
	if !ok {
		return "", fmt.Errorf("unknown shader program %q", name)
	}
	return src[stage], nil
}

// Path is the on-disk location of a program stage inside dir.
func Path(dir, name string, stage Stage) string {
	return filepath.Join(dir, name+stage.Ext())
}

// Source returns the source of a program stage. A file in dir overrides
// the built-in source; with an empty dir the built-in source is used.
func Source(dir, name string, stage Stage) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(Path(dir, name, stage))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("error reading %s shader of %s: %w", stage, name, err)
		}
	}
	return Builtin(name, stage)
}

// Sources returns both stages of a program.
func Sources(dir, name string) (vertex, fragment string, err error) {
	if vertex, err = Source(dir, name, Vertex); err != nil {
		return
	}
	fragment, err = Source(dir, name, Fragment)
	return
}
