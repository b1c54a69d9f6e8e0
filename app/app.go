// Package app drives a sample through its lifecycle: Init once, Running once
// per frame, Cleanup once.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

type State int

const (
	Init State = iota
	Running
	Cleanup
	Destroy
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Running:
		return "Running"
	case Cleanup:
		return "Cleanup"
	case Destroy:
		return "Destroy"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// App is a sample. Each callback returns the state to move to next.
//
// OnInit returns Running to start the frame loop or Cleanup to skip it.
// OnRunning returns Running to draw another frame or Cleanup to stop.
// OnCleanup returns Destroy.
type App interface {
	OnInit() (State, error)
	OnRunning() (State, error)
	OnCleanup() (State, error)
}

// Stats are the frame times of the Running state.
type Stats struct {
	Frames int
	Total  time.Duration
	Min    time.Duration
	Max    time.Duration
}

func (s *Stats) add(d time.Duration) {
	if s.Frames == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Frames++
	s.Total += d
}

func (s Stats) Mean() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d frames in %v (min %v, mean %v, max %v)", s.Frames, s.Total, s.Min, s.Mean(), s.Max)
}

var ErrBadTransition = errors.New("app: invalid state transition")

// Run executes a until it reaches Destroy. The loop leaves Running when a
// callback asks for Cleanup, returns an error, ctx is done or
// cfg.MaxFrames frames were drawn. OnCleanup runs exactly once, also when
// OnInit failed. Cancelling ctx is a normal exit, not an error.
func Run(ctx context.Context, a App, cfg Config) (Stats, error) {
	var stats Stats

	next, err := a.OnInit()
	if err != nil {
		err = errors.Wrap(err, "init")
		next = Cleanup
	} else if next != Running && next != Cleanup {
		err = errors.Wrapf(ErrBadTransition, "init returned %s", next)
		next = Cleanup
	}

	for next == Running {
		if ctx.Err() != nil {
			break
		}
		if cfg.MaxFrames > 0 && stats.Frames >= cfg.MaxFrames {
			break
		}

		start := hrtime.Now()
		next, err = a.OnRunning()
		stats.add(hrtime.Since(start))

		if err != nil {
			err = errors.Wrapf(err, "frame %d", stats.Frames-1)
			break
		}
		if next != Running && next != Cleanup {
			err = errors.Wrapf(ErrBadTransition, "frame %d returned %s", stats.Frames-1, next)
			break
		}
	}

	final, cleanupErr := a.OnCleanup()
	if cleanupErr != nil {
		err = errors.CombineErrors(err, errors.Wrap(cleanupErr, "cleanup"))
	} else if final != Destroy {
		err = errors.CombineErrors(err, errors.Wrapf(ErrBadTransition, "cleanup returned %s", final))
	}
	return stats, err
}
