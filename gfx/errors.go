package gfx

import "github.com/cockroachdb/errors"

var (
	ErrInvalidHandle = errors.New("gfx: invalid or released handle")
	ErrPoolExhausted = errors.New("gfx: resource pool exhausted")
	ErrPassActive    = errors.New("gfx: a pass is already active")
	ErrNoPass        = errors.New("gfx: no active pass")
	ErrNoDrawState   = errors.New("gfx: no draw state applied")
	ErrUniformSlot   = errors.New("gfx: shader has no such uniform block")
	ErrUniformSize   = errors.New("gfx: uniform block larger than declared")
	ErrUnsupported   = errors.New("gfx: unsupported by backend")
	ErrShutdown      = errors.New("gfx: device is shut down")
)
