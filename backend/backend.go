// Package backend picks the gfx.Device implementation a sample binary runs
// on and applies the run config to it.
package backend

import (
	"io/fs"
	"log"
	"slices"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/gfx/record"
	"github.com/vkngwrapper/samples/gfx/vulkan"
	"github.com/vkngwrapper/samples/shaders"
)

// Open returns the OpenFunc for cfg: the recording backend when
// cfg.Headless is set, the Vulkan backend otherwise. A nil logger means
// log.Default().
func Open(cfg app.Config, logger *log.Logger) gfx.OpenFunc {
	if logger == nil {
		logger = log.Default()
	}

	if cfg.Headless {
		opts := record.Options{QuitAfter: cfg.MaxFrames}
		if cfg.Verbose {
			opts.Logger = logger
		}
		return Wrap(cfg, record.New(opts).Open)
	}

	return Wrap(cfg, requireShaders(shaders.FS, vulkan.OpenFunc(vulkan.Options{
		Shaders:           shaders.FS,
		Validation:        cfg.Validation,
		PipelineCachePath: cfg.PipelineCache,
		Logger:            logger,
	})))
}

// requireShaders fails before open creates a window when fsys lacks the
// compiled programs.
func requireShaders(fsys fs.FS, open gfx.OpenFunc) gfx.OpenFunc {
	return func(setup gfx.Setup) (gfx.Device, error) {
		if err := shaders.CheckCompiled(fsys, shaders.Programs...); err != nil {
			return nil, err
		}
		return open(setup)
	}
}

// Wrap applies the config's setup overrides and disabled features around
// open.
func Wrap(cfg app.Config, open gfx.OpenFunc) gfx.OpenFunc {
	return func(setup gfx.Setup) (gfx.Device, error) {
		features, err := cfg.Features()
		if err != nil {
			return nil, err
		}

		setup = cfg.Apply(setup)
		if slices.Contains(features, gfx.FeatureMSAA) {
			setup.SampleCount = 1
		}

		dev, err := open(setup)
		if err != nil {
			return nil, err
		}
		return gfx.WithoutFeatures(dev, features...), nil
	}
}
