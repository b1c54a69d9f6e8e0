// Command fullscreenquad draws a time-animated pattern over the whole window.
//
// The windowed build needs the compiled shaders:
//
//	go generate ./shaders
//	go run ./cmd/fullscreenquad [-config run.yaml]
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
	"github.com/vkngwrapper/samples/samples/fullscreenquad"
)

func main() {
	runtime.LockOSThread()

	cfg, err := app.ParseFlags("fullscreenquad", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := app.Run(ctx, fullscreenquad.New(backend.Open(cfg, nil)), cfg)
	if cfg.Verbose {
		log.Printf("fullscreenquad: %s", stats)
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
