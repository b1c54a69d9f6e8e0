// Package fullscreenquad fills the window with a time-animated fragment
// shader drawn on a single quad.
package fullscreenquad

import (
	"encoding/binary"
	"math"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/shaders"
)

// FrameTime is how far the shader clock advances per frame.
const FrameTime = 1.0 / 60.0

// Corners of the unit square as a triangle strip. The vertex shader maps
// them to clip space.
var Corners = []float32{
	0, 0,
	1, 0,
	0, 1,
	1, 1,
}

var Layout = gfx.VertexLayout{}.Add(gfx.AttrPosition, gfx.Float2)

// Params is the fragment stage uniform block.
type Params struct {
	Time float32
	_    [3]float32
}

var Shader = gfx.ShaderDesc{
	Name:  shaders.FullscreenQuad,
	Label: "fullscreenquad",
	UniformBlocks: []gfx.UniformBlockDesc{
		{Stage: gfx.StageFragment, Size: 16},
	},
}

type Sample struct {
	open gfx.OpenFunc

	dev       gfx.Device
	drawState gfx.DrawState
	params    Params
}

func New(open gfx.OpenFunc) *Sample {
	return &Sample{open: open}
}

func Setup() gfx.Setup {
	return gfx.WindowSetup(600, 600, "Fullscreen Quad Sample")
}

// Time is the shader time used by frame n.
func Time(n int) float32 {
	return float32(n+1) * FrameTime
}

func cornerBytes() []byte {
	b := make([]byte, 4*len(Corners))
	for i, f := range Corners {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func (s *Sample) OnInit() (app.State, error) {
	dev, err := s.open(Setup())
	if err != nil {
		return app.Cleanup, err
	}
	s.dev = dev

	vb, err := dev.MakeBuffer(gfx.BufferDesc{
		Label:   "fullscreenquad-vertices",
		Type:    gfx.VertexBuffer,
		Content: cornerBytes(),
	})
	if err != nil {
		return app.Cleanup, err
	}

	shd, err := dev.MakeShader(Shader)
	if err != nil {
		return app.Cleanup, err
	}

	pip, err := dev.MakePipeline(gfx.PipelineDesc{
		Label:     "fullscreenquad",
		Shader:    shd,
		Layout:    Layout,
		Primitive: gfx.TriangleStrip,
		Depth:     gfx.DepthState{Compare: gfx.CompareAlways},
	})
	if err != nil {
		return app.Cleanup, err
	}

	s.drawState = gfx.DrawState{Pipeline: pip, VertexBuffer: vb}
	s.params = Params{}
	return app.Running, nil
}

func (s *Sample) OnRunning() (app.State, error) {
	s.params.Time += FrameTime

	s.dev.BeginPass(Setup().DefaultPassAction)
	s.dev.ApplyDrawState(s.drawState)
	s.dev.ApplyUniforms(gfx.StageFragment, 0, s.params)
	s.dev.Draw(0, 4, 1)
	s.dev.EndPass()
	if err := s.dev.CommitFrame(); err != nil {
		return app.Cleanup, err
	}

	if s.dev.QuitRequested() {
		return app.Cleanup, nil
	}
	return app.Running, nil
}

func (s *Sample) OnCleanup() (app.State, error) {
	if s.dev == nil {
		return app.Destroy, nil
	}
	err := s.dev.Shutdown()
	s.dev = nil
	return app.Destroy, err
}
