package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/asyncgl/texture"
)

// FrameBuffer is the offscreen render target: a multisampled colour and
// depth pair, plus a single sampled colour texture with a full mip chain
// that the multisampled image is resolved into.
type FrameBuffer struct {
	width, height int
	samples       int
	levels        int

	fbo        uint32
	colorMS    uint32
	depthMS    uint32
	resolveFbo uint32
	resolved   uint32
}

// maxSamples is the highest sample count usable for both attachments.
func maxSamples() int {
	var color, depth, fb int32
	gl.GetIntegerv(gl.MAX_COLOR_TEXTURE_SAMPLES, &color)
	gl.GetIntegerv(gl.MAX_DEPTH_TEXTURE_SAMPLES, &depth)
	gl.GetIntegerv(gl.MAX_SAMPLES, &fb)
	return int(min(color, depth, fb))
}

func clampSamples(requested, max int) int {
	if requested < 1 {
		requested = 1
	}
	if max >= 1 && requested > max {
		return max
	}
	return requested
}

func NewFrameBuffer(width, height, samples int) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid framebuffer size %dx%d", width, height)
	}
	fb := &FrameBuffer{
		width:   width,
		height:  height,
		samples: clampSamples(samples, maxSamples()),
		levels:  texture.MipLevels(width, height),
	}
	w, h, s := int32(width), int32(height), int32(fb.samples)

	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	gl.GenTextures(1, &fb.colorMS)
	gl.BindTexture(gl.TEXTURE_2D_MULTISAMPLE, fb.colorMS)
	gl.TexImage2DMultisample(gl.TEXTURE_2D_MULTISAMPLE, s, gl.RGBA8, w, h, true)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D_MULTISAMPLE, fb.colorMS, 0)

	gl.GenTextures(1, &fb.depthMS)
	gl.BindTexture(gl.TEXTURE_2D_MULTISAMPLE, fb.depthMS)
	gl.TexImage2DMultisample(gl.TEXTURE_2D_MULTISAMPLE, s, gl.DEPTH_COMPONENT24, w, h, true)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D_MULTISAMPLE, fb.depthMS, 0)
	gl.BindTexture(gl.TEXTURE_2D_MULTISAMPLE, 0)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		fb.Destroy()
		return nil, fmt.Errorf("multisample framebuffer is not complete: 0x%x", status)
	}

	gl.GenFramebuffers(1, &fb.resolveFbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.resolveFbo)
	gl.GenTextures(1, &fb.resolved)
	gl.BindTexture(gl.TEXTURE_2D, fb.resolved)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(fb.levels-1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	// allocate the chain so the texture is complete before the first resolve
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.resolved, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		fb.Destroy()
		return nil, fmt.Errorf("resolve framebuffer is not complete: 0x%x", status)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return fb, nil
}

func (fb *FrameBuffer) Size() (int, int) { return fb.width, fb.height }

func (fb *FrameBuffer) Samples() int { return fb.samples }

func (fb *FrameBuffer) Levels() int { return fb.levels }

// Texture is the resolved colour texture.
func (fb *FrameBuffer) Texture() uint32 { return fb.resolved }

// Bind makes the multisampled target current for drawing and sets the
// viewport to cover it.
func (fb *FrameBuffer) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, int32(fb.width), int32(fb.height))
}

// Clear clears the multisampled colour and depth attachments.
func (fb *FrameBuffer) Clear(color [4]float32, depth float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.ColorMask(true, true, true, true)
	gl.DepthMask(true)
	gl.ClearBufferfv(gl.COLOR, 0, &color[0])
	gl.ClearBufferfv(gl.DEPTH, 0, &depth)
}

// Resolve copies the multisampled colour into level 0 of the resolved
// texture.
func (fb *FrameBuffer) Resolve() {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.resolveFbo)
	w, h := int32(fb.width), int32(fb.height)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// GenerateMipmaps rebuilds the mip chain of the resolved texture.
func (fb *FrameBuffer) GenerateMipmaps() {
	var prev int32
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &prev)
	gl.BindTexture(gl.TEXTURE_2D, fb.resolved)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, uint32(prev))
}

func (fb *FrameBuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
	}
	if fb.resolveFbo != 0 {
		gl.DeleteFramebuffers(1, &fb.resolveFbo)
	}
	for _, t := range []*uint32{&fb.colorMS, &fb.depthMS, &fb.resolved} {
		if *t != 0 {
			gl.DeleteTextures(1, t)
			*t = 0
		}
	}
	fb.fbo, fb.resolveFbo = 0, 0
}

// readPixels reads an RGBA8 rectangle from the current read framebuffer,
// bottom row first.
func readPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}
