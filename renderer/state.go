package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// DepthStencilState is an immutable description of depth testing.
type DepthStencilState struct {
	DepthTest  bool
	DepthWrite bool
	Func       uint32
}

func (s *DepthStencilState) Apply() {
	setEnabled(gl.DEPTH_TEST, s.DepthTest)
	gl.DepthMask(s.DepthWrite)
	gl.DepthFunc(s.Func)
}

// Color write mask bits.
const (
	ColorRed uint8 = 1 << iota
	ColorGreen
	ColorBlue
	ColorAlpha
	ColorAll = ColorRed | ColorGreen | ColorBlue | ColorAlpha
)

type BlendState struct {
	Enabled   bool
	SrcRGB    uint32
	DstRGB    uint32
	SrcAlpha  uint32
	DstAlpha  uint32
	EqRGB     uint32
	EqAlpha   uint32
	ColorMask uint8
}

func (s *BlendState) Apply() {
	setEnabled(gl.BLEND, s.Enabled)
	gl.BlendFuncSeparate(s.SrcRGB, s.DstRGB, s.SrcAlpha, s.DstAlpha)
	gl.BlendEquationSeparate(s.EqRGB, s.EqAlpha)
	gl.ColorMask(s.ColorMask&ColorRed != 0, s.ColorMask&ColorGreen != 0, s.ColorMask&ColorBlue != 0, s.ColorMask&ColorAlpha != 0)
}

// NoBlend writes source colours unchanged.
func NoBlend() *BlendState {
	return &BlendState{
		SrcRGB: gl.ONE, DstRGB: gl.ZERO, SrcAlpha: gl.ONE, DstAlpha: gl.ZERO,
		EqRGB: gl.FUNC_ADD, EqAlpha: gl.FUNC_ADD, ColorMask: ColorAll,
	}
}

// AlphaBlend is classic "one minus source alpha" blending.
func AlphaBlend() *BlendState {
	return &BlendState{
		Enabled: true,
		SrcRGB:  gl.SRC_ALPHA, DstRGB: gl.ONE_MINUS_SRC_ALPHA, SrcAlpha: gl.ONE, DstAlpha: gl.ZERO,
		EqRGB: gl.FUNC_ADD, EqAlpha: gl.FUNC_ADD, ColorMask: ColorAll,
	}
}

// MaskGreenBlend is AlphaBlend writing only green and blue.
func MaskGreenBlend() *BlendState {
	s := AlphaBlend()
	s.ColorMask = ColorGreen | ColorBlue
	return s
}

// BlendFor maps a configured blend mode to a state.
func BlendFor(mode string) (*BlendState, error) {
	switch mode {
	case "", "none":
		return NoBlend(), nil
	case "alpha":
		return AlphaBlend(), nil
	case "mask-green":
		return MaskGreenBlend(), nil
	}
	return nil, fmt.Errorf("unknown blend mode %q", mode)
}

type RasterizerState struct {
	Fill uint32
	// Cull is the face to cull, 0 disables culling.
	Cull        uint32
	FrontCCW    bool
	Multisample bool
}

func (s *RasterizerState) Apply() {
	gl.PolygonMode(gl.FRONT_AND_BACK, s.Fill)
	setEnabled(gl.CULL_FACE, s.Cull != 0)
	if s.Cull != 0 {
		gl.CullFace(s.Cull)
	}
	if s.FrontCCW {
		gl.FrontFace(gl.CCW)
	} else {
		gl.FrontFace(gl.CW)
	}
	setEnabled(gl.MULTISAMPLE, s.Multisample)
}

func setEnabled(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

// stateGuard captures the pipeline state touched by a pass and puts it
// back afterwards.
type stateGuard struct {
	drawFBO, readFBO int32
	viewport         [4]int32
	program          int32
	activeTexture    int32
	textures         [2]int32
	samplers         [2]int32
	depthTest        bool
	blend            bool
	cull             bool
	multisample      bool
	depthMask        bool
	colorMask        [4]bool
}

func saveState() *stateGuard {
	g := &stateGuard{}
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &g.drawFBO)
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &g.readFBO)
	gl.GetIntegerv(gl.VIEWPORT, &g.viewport[0])
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &g.program)
	gl.GetIntegerv(gl.ACTIVE_TEXTURE, &g.activeTexture)
	for i := range g.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &g.textures[i])
		gl.GetIntegerv(gl.SAMPLER_BINDING, &g.samplers[i])
	}
	gl.ActiveTexture(uint32(g.activeTexture))
	g.depthTest = gl.IsEnabled(gl.DEPTH_TEST)
	g.blend = gl.IsEnabled(gl.BLEND)
	g.cull = gl.IsEnabled(gl.CULL_FACE)
	g.multisample = gl.IsEnabled(gl.MULTISAMPLE)
	gl.GetBooleanv(gl.DEPTH_WRITEMASK, &g.depthMask)
	gl.GetBooleanv(gl.COLOR_WRITEMASK, &g.colorMask[0])
	return g
}

func (g *stateGuard) restore() {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(g.drawFBO))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(g.readFBO))
	gl.Viewport(g.viewport[0], g.viewport[1], g.viewport[2], g.viewport[3])
	gl.UseProgram(uint32(g.program))
	for i := range g.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, uint32(g.textures[i]))
		gl.BindSampler(uint32(i), uint32(g.samplers[i]))
	}
	gl.ActiveTexture(uint32(g.activeTexture))
	setEnabled(gl.DEPTH_TEST, g.depthTest)
	setEnabled(gl.BLEND, g.blend)
	setEnabled(gl.CULL_FACE, g.cull)
	setEnabled(gl.MULTISAMPLE, g.multisample)
	gl.DepthMask(g.depthMask)
	gl.ColorMask(g.colorMask[0], g.colorMask[1], g.colorMask[2], g.colorMask[3])
}
