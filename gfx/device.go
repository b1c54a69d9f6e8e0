package gfx

// Device is the render facade the samples are written against.
//
// Resource creation returns errors directly. The per-frame calls between
// BeginPass and CommitFrame do not: the first failure is latched, the rest
// of the frame is skipped, and CommitFrame reports it.
type Device interface {
	QueryFeature(f Feature) bool
	DisplayAttrs() DisplayAttrs
	QuitRequested() bool

	MakeBuffer(desc BufferDesc) (Buffer, error)
	MakeImage(desc ImageDesc) (Image, error)
	UpdateImage(img Image, content []byte) error
	MakeShader(desc ShaderDesc) (Shader, error)
	MakePipeline(desc PipelineDesc) (Pipeline, error)

	BeginPass(action PassAction)
	ApplyDrawState(ds DrawState)
	// ApplyUniforms uploads a fixed-size parameter struct (see
	// EncodeUniforms) into the slot'th uniform block of stage.
	ApplyUniforms(stage ShaderStage, slot int, block any)
	Draw(base, count, instances int)
	EndPass()
	CommitFrame() error

	Shutdown() error
}

// OpenFunc creates the window and graphics context described by a Setup.
type OpenFunc func(setup Setup) (Device, error)

// DrawGroup draws one primitive group with a single instance.
func DrawGroup(dev Device, group PrimitiveGroup) {
	dev.Draw(group.Base, group.Count, 1)
}

type withoutFeatures struct {
	Device
	disabled map[Feature]bool
}

// WithoutFeatures wraps dev so that QueryFeature reports the given features
// as unsupported. Everything else is forwarded.
func WithoutFeatures(dev Device, features ...Feature) Device {
	if len(features) == 0 {
		return dev
	}
	disabled := make(map[Feature]bool, len(features))
	for _, f := range features {
		disabled[f] = true
	}
	return &withoutFeatures{Device: dev, disabled: disabled}
}

func (w *withoutFeatures) QueryFeature(f Feature) bool {
	if w.disabled[f] {
		return false
	}
	return w.Device.QueryFeature(f)
}
