package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// EXT_texture_filter_anisotropic, not part of the 4.1 core headers.
const (
	textureMaxAnisotropy    = 0x84FE
	maxTextureMaxAnisotropy = 0x84FF
)

type SamplerDesc struct {
	MinFilter  int32
	MagFilter  int32
	Wrap       int32
	Anisotropy float32
}

var (
	FilterLinearMip = SamplerDesc{MinFilter: gl.LINEAR_MIPMAP_LINEAR, MagFilter: gl.LINEAR, Wrap: gl.CLAMP_TO_EDGE}
	FilterAniso     = SamplerDesc{MinFilter: gl.LINEAR_MIPMAP_LINEAR, MagFilter: gl.LINEAR, Wrap: gl.CLAMP_TO_EDGE, Anisotropy: 16}
	FilterNearest   = SamplerDesc{MinFilter: gl.NEAREST, MagFilter: gl.NEAREST, Wrap: gl.CLAMP_TO_EDGE}
	FilterLinear    = SamplerDesc{MinFilter: gl.LINEAR, MagFilter: gl.LINEAR, Wrap: gl.CLAMP_TO_EDGE}
)

// SamplerState is a GL sampler object. It overrides the filtering of
// whatever texture is bound to the same unit.
type SamplerState struct {
	id   uint32
	desc SamplerDesc
}

func NewSamplerState(desc SamplerDesc) *SamplerState {
	s := &SamplerState{desc: desc}
	gl.GenSamplers(1, &s.id)
	gl.SamplerParameteri(s.id, gl.TEXTURE_MIN_FILTER, desc.MinFilter)
	gl.SamplerParameteri(s.id, gl.TEXTURE_MAG_FILTER, desc.MagFilter)
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_S, desc.Wrap)
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_T, desc.Wrap)
	if desc.Anisotropy > 1 {
		var max float32
		gl.GetFloatv(maxTextureMaxAnisotropy, &max)
		// GL_INVALID_ENUM without the extension
		if gl.GetError() == gl.NO_ERROR && max > 1 {
			a := desc.Anisotropy
			if a > max {
				a = max
			}
			gl.SamplerParameterf(s.id, textureMaxAnisotropy, a)
		}
	}
	return s
}

func (s *SamplerState) Desc() SamplerDesc { return s.desc }

func (s *SamplerState) Bind(unit uint32) { gl.BindSampler(unit, s.id) }

func (s *SamplerState) Delete() {
	gl.DeleteSamplers(1, &s.id)
	s.id = 0
}

// Samplers holds the sampler states used by the demo.
type Samplers struct {
	LinearMip *SamplerState
	Aniso     *SamplerState
	Nearest   *SamplerState
	Linear    *SamplerState
}

func NewSamplers() *Samplers {
	return &Samplers{
		LinearMip: NewSamplerState(FilterLinearMip),
		Aniso:     NewSamplerState(FilterAniso),
		Nearest:   NewSamplerState(FilterNearest),
		Linear:    NewSamplerState(FilterLinear),
	}
}

// ByName maps the configured present filter to a sampler.
func (s *Samplers) ByName(name string) (*SamplerState, error) {
	switch name {
	case "nearest":
		return s.Nearest, nil
	case "linear":
		return s.Linear, nil
	case "mipmap":
		return s.LinearMip, nil
	}
	return nil, fmt.Errorf("unknown filter %q", name)
}

func (s *Samplers) Delete() {
	s.LinearMip.Delete()
	s.Aniso.Delete()
	s.Nearest.Delete()
	s.Linear.Delete()
}
