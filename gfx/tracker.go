package gfx

import "github.com/cockroachdb/errors"

// Tracker validates the order of per-frame calls for a backend and latches
// the first error of the frame. Once an error is latched every check fails,
// so the backend skips the remaining work until Commit.
type Tracker struct {
	inPass    bool
	drawState bool
	passes    int
	err       error
}

func (t *Tracker) Fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

func (t *Tracker) Err() error {
	return t.err
}

// Passes begun since the last Commit.
func (t *Tracker) Passes() int {
	return t.passes
}

func (t *Tracker) BeginPass() bool {
	if t.err != nil {
		return false
	}
	if t.inPass {
		t.Fail(ErrPassActive)
		return false
	}
	t.inPass = true
	t.drawState = false
	t.passes++
	return true
}

// InPass fails with ErrNoPass outside of BeginPass/EndPass.
func (t *Tracker) InPass() bool {
	if t.err != nil {
		return false
	}
	if !t.inPass {
		t.Fail(ErrNoPass)
		return false
	}
	return true
}

// SetDrawState records whether the last ApplyDrawState resolved.
func (t *Tracker) SetDrawState(ok bool) {
	t.drawState = ok
}

func (t *Tracker) HasDrawState() bool {
	if !t.InPass() {
		return false
	}
	if !t.drawState {
		t.Fail(ErrNoDrawState)
		return false
	}
	return true
}

// CheckUniforms resolves the block index for stage/slot in shader and
// validates the encoded size against the declaration.
func (t *Tracker) CheckUniforms(shader ShaderDesc, stage ShaderStage, slot int, size int) (int, bool) {
	if !t.HasDrawState() {
		return -1, false
	}
	index, ok := shader.UniformBlock(stage, slot)
	if !ok {
		t.Fail(errors.Wrapf(ErrUniformSlot, "shader %q %s slot %d", shader.Name, stage, slot))
		return -1, false
	}
	if declared := shader.UniformBlocks[index].Size; size > declared {
		t.Fail(errors.Wrapf(ErrUniformSize, "shader %q %s slot %d: %d > %d bytes", shader.Name, stage, slot, size, declared))
		return -1, false
	}
	return index, true
}

func (t *Tracker) EndPass() bool {
	if !t.InPass() {
		return false
	}
	t.inPass = false
	t.drawState = false
	return true
}

// Commit returns the frame's latched error, if any, and resets the tracker
// for the next frame.
func (t *Tracker) Commit() error {
	if t.err == nil && t.inPass {
		t.err = errors.Wrap(ErrPassActive, "commit inside pass")
	}
	err := t.err
	*t = Tracker{}
	return err
}
