package app

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/vkngwrapper/samples/gfx"
)

// Config holds the run options shared by all sample binaries. Zero values
// keep what the sample asks for in its gfx.Setup.
type Config struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Title       string `yaml:"title"`
	SampleCount int    `yaml:"sample_count"`
	HighDPI     bool   `yaml:"high_dpi"`

	// Headless runs against the recording backend instead of a window.
	Headless bool `yaml:"headless"`
	// MaxFrames stops the frame loop after that many frames when positive.
	MaxFrames int `yaml:"max_frames"`

	Validation    bool   `yaml:"validation"`
	PipelineCache string `yaml:"pipeline_cache"`
	// DisableFeatures names features (see gfx.Feature) reported as
	// unsupported.
	DisableFeatures []string `yaml:"disable_features"`
	Verbose         bool     `yaml:"verbose"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, cfg.Validate()
}

// ParseFlags builds a Config from command-line args. Values from -config
// are loaded first, flags given explicitly override them. register adds
// sample specific flags to the set before parsing.
func ParseFlags(name string, args []string, register ...func(fs *flag.FlagSet)) (Config, error) {
	var (
		flags      Config
		configPath string
		disable    string
	)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.IntVar(&flags.Width, "width", 0, "window width override")
	fs.IntVar(&flags.Height, "height", 0, "window height override")
	fs.StringVar(&flags.Title, "title", "", "window title override")
	fs.IntVar(&flags.SampleCount, "msaa", 0, "MSAA sample count override")
	fs.BoolVar(&flags.HighDPI, "highdpi", false, "request a high DPI framebuffer")
	fs.BoolVar(&flags.Headless, "headless", false, "run without a window against the recording backend")
	fs.IntVar(&flags.MaxFrames, "frames", 0, "stop after this many frames")
	fs.BoolVar(&flags.Validation, "validation", false, "enable Vulkan validation layers")
	fs.StringVar(&flags.PipelineCache, "pipeline-cache", "", "file to persist the pipeline cache in")
	fs.StringVar(&disable, "disable", "", "comma separated features to report as unsupported")
	fs.BoolVar(&flags.Verbose, "v", false, "log frame statistics")
	for _, r := range register {
		r(fs)
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var cfg Config
	if configPath != "" {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = flags.Width
		case "height":
			cfg.Height = flags.Height
		case "title":
			cfg.Title = flags.Title
		case "msaa":
			cfg.SampleCount = flags.SampleCount
		case "highdpi":
			cfg.HighDPI = flags.HighDPI
		case "headless":
			cfg.Headless = flags.Headless
		case "frames":
			cfg.MaxFrames = flags.MaxFrames
		case "validation":
			cfg.Validation = flags.Validation
		case "pipeline-cache":
			cfg.PipelineCache = flags.PipelineCache
		case "disable":
			cfg.DisableFeatures = splitList(disable)
		case "v":
			cfg.Verbose = flags.Verbose
		}
	})

	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return errors.Newf("config: negative window size %dx%d", c.Width, c.Height)
	}
	if c.MaxFrames < 0 {
		return errors.Newf("config: negative frame limit %d", c.MaxFrames)
	}
	switch c.SampleCount {
	case 0, 1, 2, 4, 8, 16:
	default:
		return errors.Newf("config: sample count %d is not a power of two up to 16", c.SampleCount)
	}
	_, err := c.Features()
	return err
}

// Features resolves DisableFeatures.
func (c Config) Features() ([]gfx.Feature, error) {
	var features []gfx.Feature
	for _, name := range c.DisableFeatures {
		f, ok := gfx.ParseFeature(name)
		if !ok {
			return nil, errors.Newf("config: unknown feature %q", name)
		}
		features = append(features, f)
	}
	return features, nil
}

// Apply overrides the fields of setup that are set in c.
func (c Config) Apply(setup gfx.Setup) gfx.Setup {
	if c.Width > 0 {
		setup.Width = c.Width
	}
	if c.Height > 0 {
		setup.Height = c.Height
	}
	if c.Title != "" {
		setup.Title = c.Title
	}
	if c.SampleCount > 0 {
		setup.SampleCount = c.SampleCount
	}
	if c.HighDPI {
		setup.HighDPI = true
	}
	return setup
}
