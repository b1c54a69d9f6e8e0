// Command arraytex draws a cube textured from a three-layer array texture.
//
// The windowed build needs the compiled shaders:
//
//	go generate ./shaders
//	go run ./cmd/arraytex [-mesh model.obj] [-config run.yaml]
//
// -headless runs against the recording backend and needs neither shaders nor
// a GPU.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/backend"
	"github.com/vkngwrapper/samples/samples/arraytex"
)

func main() {
	runtime.LockOSThread()

	var opts arraytex.Options
	cfg, err := app.ParseFlags("arraytex", os.Args[1:], func(fs *flag.FlagSet) {
		fs.StringVar(&opts.MeshPath, "mesh", "", "Wavefront OBJ mesh to draw instead of the cube")
	})
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sample := arraytex.New(backend.Open(cfg, nil), opts)
	stats, err := app.Run(ctx, sample, cfg)
	if cfg.Verbose {
		log.Printf("arraytex: %s", stats)
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
