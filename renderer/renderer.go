// Package renderer draws the lit, textured model into a multisampled
// offscreen framebuffer and presents the resolved result in the window.
// Everything here must run on the thread whose GL context is current.
package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/asyncgl/geometry"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/options"
	"github.com/richinsley/asyncgl/recorder"
	"github.com/richinsley/asyncgl/shader"
	"github.com/richinsley/asyncgl/texture"
)

// Camera provides the view matrix of the current frame.
type Camera interface {
	View() mgl32.Mat4
}

var (
	lightAmbient  = mgl32.Vec3{0.1, 0.1, 0.1}
	lightDiffuse  = mgl32.Vec3{0.7, 0.7, 0.7}
	lightSpecular = mgl32.Vec3{0.2, 0.7, 0.9}
	lightPosition = mgl32.Vec3{1, 1, 1}

	materialAmbient  = mgl32.Vec3{0.1, 0.1, 0.1}
	materialDiffuse  = mgl32.Vec3{0.7, 0.7, 0.7}
	materialSpecular = mgl32.Vec3{0.2, 0.7, 0.9}

	clearColor = [4]float32{0.2, 0.2, 0.2, 1}
)

const (
	materialShininess float32 = 128
	materialOpacity   float32 = 1

	fovy = 60
	near = 0.1
	far  = 1000

	checkerSize = 256
	checkerCell = 32
)

type Renderer struct {
	opts   *options.Options
	log    *logger.Logger
	camera Camera

	width, height int
	projection    mgl32.Mat4

	phong   *Program
	present *Program

	model  *Mesh
	meshes []*Mesh
	quad   *Mesh

	colorTexture *Texture

	samplers      *Samplers
	presentFilter *SamplerState

	depthLess     *DepthStencilState
	depthDisabled *DepthStencilState
	sceneBlend    *BlendState
	noBlend       *BlendState
	sceneRaster   *RasterizerState
	noCull        *RasterizerState

	fb *FrameBuffer
}

func NewRenderer(opts *options.Options, camera Camera, log *logger.Logger) *Renderer {
	return &Renderer{
		opts:   opts,
		camera: camera,
		log:    log,
		depthLess: &DepthStencilState{
			DepthTest: true, DepthWrite: true, Func: gl.LESS,
		},
		depthDisabled: &DepthStencilState{
			DepthTest: false, DepthWrite: false, Func: gl.LESS,
		},
		noBlend:     NoBlend(),
		sceneRaster: &RasterizerState{Fill: gl.FILL, FrontCCW: true, Multisample: true},
		noCull:      &RasterizerState{Fill: gl.FILL, FrontCCW: true},
	}
}

// Initialize creates every GPU resource. The caller's context must be
// current and GL function pointers loaded.
func (r *Renderer) Initialize(width, height int) error {
	r.log.Info().
		Str("vendor", gl.GoStr(gl.GetString(gl.VENDOR))).
		Str("renderer", gl.GoStr(gl.GetString(gl.RENDERER))).
		Str("version", gl.GoStr(gl.GetString(gl.VERSION))).
		Str("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))).
		Msg("OpenGL device")

	var err error
	if r.sceneBlend, err = BlendFor(r.opts.Blend); err != nil {
		return err
	}

	if r.phong, err = r.loadProgram(shader.PhongLighting); err != nil {
		return err
	}
	if r.present, err = r.loadProgram(shader.TextureProgram); err != nil {
		return err
	}
	r.phong.Uniform("light_ambient", lightAmbient)
	r.phong.Uniform("light_diffuse", lightDiffuse)
	r.phong.Uniform("light_specular", lightSpecular)
	r.phong.Uniform("light_position", lightPosition)
	r.phong.Uniform("material_ambient", materialAmbient)
	r.phong.Uniform("material_diffuse", materialDiffuse)
	r.phong.Uniform("material_specular", materialSpecular)
	r.phong.Uniform("material_shininess", materialShininess)
	r.phong.Uniform("material_opacity", materialOpacity)
	r.phong.UniformSampler("color_texture_aniso", 0)
	r.phong.UniformSampler("color_texture_nearest", 1)
	r.phong.Uniform("filter_split", float32(-1))
	r.present.UniformSampler("in_texture", 0)
	r.present.Uniform("mvp", mgl32.Ortho(0, 1, 0, 1, -1, 1))

	r.model = r.upload(r.loadModel())
	r.quad = r.upload(geometry.NewQuad(mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}))
	r.colorTexture = NewTexture(r.loadTexture(), true)

	r.samplers = NewSamplers()
	if r.presentFilter, err = r.samplers.ByName(r.opts.PresentFilter); err != nil {
		return err
	}
	return r.Resize(width, height)
}

func (r *Renderer) upload(m *geometry.Mesh) *Mesh {
	g := NewMesh(m)
	r.meshes = append(r.meshes, g)
	return g
}

func (r *Renderer) loadProgram(name string) (*Program, error) {
	vs, fs, err := shader.Sources(r.opts.ShaderDir, name)
	if err != nil {
		return nil, err
	}
	return NewProgram(name, vs, fs)
}

func (r *Renderer) loadModel() *geometry.Mesh {
	switch r.opts.Model {
	case "box":
		return geometry.NewBox(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	case "plane":
		return geometry.NewPlane()
	}
	path := r.opts.ResourcePath(r.opts.OBJ)
	if !r.opts.Exists(r.opts.OBJ) {
		r.log.Warn().Str("path", path).Msg("Model not found, using a box")
		return geometry.NewBox(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	}
	m, err := geometry.LoadOBJ(path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("Failed to load model, using a box")
		return geometry.NewBox(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	}
	lo, hi := m.Bounds()
	r.log.Debug().
		Str("path", path).
		Int("vertices", m.VertexCount()).
		Floats32("min", lo[:]).
		Floats32("max", hi[:]).
		Msg("Model loaded")
	return m
}

func (r *Renderer) loadTexture() *image.RGBA {
	path := r.opts.ResourcePath(r.opts.Texture)
	if !r.opts.Exists(r.opts.Texture) {
		r.log.Warn().Str("path", path).Msg("Texture not found, using a checkerboard")
		return texture.Checkerboard(checkerSize, checkerSize, checkerCell)
	}
	img, err := texture.LoadImage(path, true)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("Failed to load texture, using a checkerboard")
		return texture.Checkerboard(checkerSize, checkerSize, checkerCell)
	}
	var limit int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &limit)
	if fitted := texture.Fit(img, int(limit)); fitted != img {
		r.log.Warn().
			Int("width", img.Rect.Dx()).
			Int("height", img.Rect.Dy()).
			Int("max", int(limit)).
			Msg("Texture too large, scaled down")
		img = fitted
	}
	return img
}

// Resize rebuilds the offscreen framebuffer and projection for a window
// framebuffer of width x height pixels.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		// minimized
		return nil
	}
	r.width, r.height = width, height
	r.projection = Projection(width, height)
	r.phong.Uniform("projection_matrix", r.projection)

	fw, fh := ScaledSize(width, height, r.opts.RenderScale)
	if r.fb != nil {
		if w, h := r.fb.Size(); w == fw && h == fh {
			return nil
		}
		r.fb.Destroy()
		r.fb = nil
	}
	fb, err := NewFrameBuffer(fw, fh, r.opts.Samples)
	if err != nil {
		return fmt.Errorf("failed to create offscreen framebuffer: %w", err)
	}
	if fb.Samples() != r.opts.Samples {
		r.log.Warn().Int("requested", r.opts.Samples).Int("samples", fb.Samples()).Msg("Sample count clamped")
	}
	r.fb = fb
	r.log.Debug().Int("width", fw).Int("height", fh).Int("levels", fb.Levels()).Msg("Offscreen framebuffer created")
	return nil
}

// Projection is the perspective projection used for a viewport.
func Projection(width, height int) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(fovy), float32(width)/float32(height), near, far)
}

// ScaledSize is the offscreen framebuffer size for a window framebuffer.
func ScaledSize(width, height, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	return width * scale, height * scale
}

// Size returns the window framebuffer size last passed to Resize.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

func (r *Renderer) FrameBuffer() *FrameBuffer { return r.fb }

// RenderToTexture draws the model into the multisampled framebuffer.
func (r *Renderer) RenderToTexture() {
	view := r.camera.View()
	modelView := view.Mul4(mgl32.Ident4())
	r.phong.Uniform("model_view_matrix", modelView)
	r.phong.Uniform("model_view_matrix_inverse_transpose", modelView.Inv().Transpose())
	split := float32(-1)
	if r.opts.SplitFilters {
		fw, _ := r.fb.Size()
		split = float32(fw) / 2
	}
	if v, ok := r.phong.Value("filter_split"); !ok || v != split {
		r.phong.Uniform("filter_split", split)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ClearColor(clearColor[0], clearColor[1], clearColor[2], clearColor[3])
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	guard := saveState()
	defer guard.restore()

	r.fb.Clear(clearColor, 1)
	r.fb.Bind()
	r.depthLess.Apply()
	r.sceneBlend.Apply()
	r.sceneRaster.Apply()

	r.phong.Bind()
	r.colorTexture.Bind(0)
	r.samplers.Aniso.Bind(0)
	r.colorTexture.Bind(1)
	r.samplers.Nearest.Bind(1)

	r.model.Draw()
}

// PostprocessFrame resolves the multisampled image and rebuilds its mips.
func (r *Renderer) PostprocessFrame() {
	r.fb.Resolve()
	r.fb.GenerateMipmaps()
}

// RenderFromTexture draws the resolved texture over the whole window.
func (r *Renderer) RenderFromTexture() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.width), int32(r.height))
	r.depthDisabled.Apply()
	r.noBlend.Apply()
	r.noCull.Apply()

	r.present.Bind()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.fb.Texture())
	r.presentFilter.Bind(0)

	r.quad.Draw()

	gl.BindSampler(0, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
}

// Frame runs the render, resolve and present passes.
func (r *Renderer) Frame() {
	if r.fb == nil {
		return
	}
	r.RenderToTexture()
	r.PostprocessFrame()
	r.RenderFromTexture()
}

// ReadPresented reads the back buffer of the window after the present pass.
func (r *Renderer) ReadPresented(pts int64) *recorder.Frame {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	return &recorder.Frame{
		Pixels: readPixels(r.width, r.height),
		Width:  r.width,
		Height: r.height,
		PTS:    pts,
	}
}

// ReloadProgram rebuilds a program from its sources. A program that fails
// to build is kept as it was.
func (r *Renderer) ReloadProgram(name string) error {
	var p *Program
	switch name {
	case shader.PhongLighting:
		p = r.phong
	case shader.TextureProgram:
		p = r.present
	default:
		return fmt.Errorf("unknown program %q", name)
	}
	vs, fs, err := shader.Sources(r.opts.ShaderDir, name)
	if err != nil {
		return err
	}
	return p.Reload(vs, fs)
}

// Shutdown releases the GPU resources. The context must still be current.
func (r *Renderer) Shutdown() {
	if r.fb != nil {
		r.fb.Destroy()
		r.fb = nil
	}
	for _, m := range r.meshes {
		m.Delete()
	}
	r.meshes = nil
	if r.colorTexture != nil {
		r.colorTexture.Delete()
	}
	if r.samplers != nil {
		r.samplers.Delete()
	}
	if r.phong != nil {
		r.phong.Delete()
	}
	if r.present != nil {
		r.present.Delete()
	}
}
