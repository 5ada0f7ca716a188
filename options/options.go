package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"
)

const EnvPrefix = "ASYNCGL"

const configFile = "config.yaml"

// Options configures the demo. Values come from config.yaml, then
// ASYNCGL_* environment variables, then command line flags.
type Options struct {
	Width  int    `fig:"width" default:"1920"`
	Height int    `fig:"height" default:"1080"`
	Title  string `fig:"title" default:"Async Rendering Window"`

	// Samples is the MSAA sample count of the offscreen framebuffer.
	Samples int `fig:"samples" default:"8"`
	// RenderScale multiplies the offscreen framebuffer size.
	RenderScale int `fig:"renderscale" default:"1"`

	Resources string `fig:"resources" default:"res"`
	// ShaderDir overrides the built-in shaders with <name>.glslv/.glslf files.
	ShaderDir   string `fig:"shaderdir"`
	WatchShader bool   `fig:"watchshader"`

	Model   string `fig:"model" default:"obj"`
	OBJ     string `fig:"obj" default:"geometry/box.obj"`
	Texture string `fig:"texture" default:"textures/0001MM_diff.jpg"`

	PresentFilter string `fig:"presentfilter" default:"nearest"`
	Blend         string `fig:"blend" default:"none"`
	SplitFilters  bool   `fig:"splitfilters"`

	DollySens    float32 `fig:"dollysens" default:"10"`
	InitialDolly float32 `fig:"initialdolly" default:"2.5"`

	SlowTick time.Duration `fig:"slowtick" default:"1s"`

	Record     string `fig:"record"`
	RecordFPS  int    `fig:"recordfps" default:"30"`
	FFMPEGPath string `fig:"ffmpeg"`
	Screenshot string `fig:"screenshots" default:"."`

	MetricsAddr string `fig:"metrics"`

	Debug   bool `fig:"debug"`
	JSONLog bool `fig:"jsonlog"`
	NoColor bool `fig:"nocolor"`
}

var (
	Models         = []string{"obj", "box", "plane"}
	PresentFilters = []string{"nearest", "linear", "mipmap"}
	BlendModes     = []string{"none", "alpha", "mask-green"}
)

// Load reads the configuration file and the environment into o.
// With an empty path the file is looked up in the working directory and
// in ./configs. A missing file is not an error.
func Load(o *Options, path string) error {
	file, dirs := configFile, []string{".", "configs"}
	if path != "" {
		file, dirs = filepath.Base(path), []string{filepath.Dir(path)}
	}
	err := fig.Load(o, fig.File(file), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		if path != "" {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		return fig.Load(o, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	return err
}

// Default returns the options with only struct defaults applied.
func Default() Options {
	var o Options
	_ = fig.Load(&o, fig.IgnoreFile())
	return o
}

// AddFlags binds command line flags to o, using current values as defaults.
func (o *Options) AddFlags(fs *pflag.FlagSet) *Options {
	fs.IntVar(&o.Width, "width", o.Width, "Window width")
	fs.IntVar(&o.Height, "height", o.Height, "Window height")
	fs.StringVar(&o.Title, "title", o.Title, "Window title")
	fs.IntVar(&o.Samples, "samples", o.Samples, "MSAA samples of the offscreen framebuffer")
	fs.IntVar(&o.RenderScale, "scale", o.RenderScale, "Offscreen framebuffer size multiplier")
	fs.StringVar(&o.Resources, "res", o.Resources, "Resource directory")
	fs.StringVar(&o.ShaderDir, "shaders", o.ShaderDir, "Directory with .glslv/.glslf files overriding the built-in shaders")
	fs.BoolVar(&o.WatchShader, "watch", o.WatchShader, "Reload shaders when files in the shader directory change")
	fs.StringVar(&o.Model, "model", o.Model, "Model to draw: obj, box or plane")
	fs.StringVar(&o.OBJ, "obj", o.OBJ, "Wavefront OBJ file, relative to the resource directory")
	fs.StringVar(&o.Texture, "texture", o.Texture, "Colour texture, relative to the resource directory")
	fs.StringVar(&o.PresentFilter, "present-filter", o.PresentFilter, "Sampler used to present the resolved frame: nearest, linear or mipmap")
	fs.StringVar(&o.Blend, "blend", o.Blend, "Blend state of the scene pass: none, alpha or mask-green")
	fs.BoolVar(&o.SplitFilters, "split-filters", o.SplitFilters, "Show anisotropic and nearest filtering side by side")
	fs.Float32Var(&o.DollySens, "dolly-sens", o.DollySens, "Right button dolly sensitivity")
	fs.Float32Var(&o.InitialDolly, "dolly", o.InitialDolly, "Initial camera distance")
	fs.DurationVar(&o.SlowTick, "slow-tick", o.SlowTick, "Idle interval of the offscreen client")
	fs.StringVarP(&o.Record, "record", "r", o.Record, "Record the presented frames to this video file")
	fs.IntVar(&o.RecordFPS, "fps", o.RecordFPS, "Frame rate of the recording")
	fs.StringVar(&o.FFMPEGPath, "ffmpeg", o.FFMPEGPath, "Path to the ffmpeg executable")
	fs.StringVar(&o.Screenshot, "screenshots", o.Screenshot, "Directory for screenshots (key P)")
	fs.StringVarP(&o.MetricsAddr, "metrics", "m", o.MetricsAddr, "Serve prometheus metrics on this address, e.g. :9090")
	fs.BoolVarP(&o.Debug, "debug", "d", o.Debug, "Debug logging")
	fs.BoolVar(&o.JSONLog, "json", o.JSONLog, "Log JSON to stderr instead of the console")
	fs.BoolVar(&o.NoColor, "no-color", o.NoColor, "Disable coloured console logs")
	return o
}

func (o *Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", o.Width, o.Height)
	}
	if o.Samples < 1 || o.Samples > 32 {
		return fmt.Errorf("samples must be within 1..32, got %d", o.Samples)
	}
	if o.RenderScale < 1 || o.RenderScale > 4 {
		return fmt.Errorf("render scale must be within 1..4, got %d", o.RenderScale)
	}
	if !oneOf(o.Model, Models) {
		return fmt.Errorf("unknown model %q, want one of %v", o.Model, Models)
	}
	if !oneOf(o.PresentFilter, PresentFilters) {
		return fmt.Errorf("unknown present filter %q, want one of %v", o.PresentFilter, PresentFilters)
	}
	if !oneOf(o.Blend, BlendModes) {
		return fmt.Errorf("unknown blend mode %q, want one of %v", o.Blend, BlendModes)
	}
	if o.Record != "" && o.RecordFPS <= 0 {
		return fmt.Errorf("invalid recording frame rate %d", o.RecordFPS)
	}
	if o.WatchShader && o.ShaderDir == "" {
		return fmt.Errorf("shader watching needs a shader directory")
	}
	if o.SlowTick <= 0 {
		return fmt.Errorf("invalid slow client tick %v", o.SlowTick)
	}
	return nil
}

// ResourcePath resolves p against the resource directory unless it is
// absolute.
func (o *Options) ResourcePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Resources, p)
}

// Exists reports whether a resource file is present.
func (o *Options) Exists(p string) bool {
	_, err := os.Stat(o.ResourcePath(p))
	return err == nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
