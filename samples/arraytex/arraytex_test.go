package arraytex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/gfx/record"
)

func TestAngles(t *testing.T) {
	tests := []struct {
		n    int
		x, y float32
	}{
		{n: 0, x: 0, y: 0},
		{n: 1, x: 0.25, y: 0.2},
		{n: 100, x: 25, y: 20},
		{n: 1440, x: 0, y: 288},
		{n: 1800, x: 90, y: 0},
		{n: 2000, x: 140, y: 40},
	}
	for _, tt := range tests {
		x, y := Angles(tt.n)
		assert.InDelta(t, tt.x, x, 1e-3, "x at frame %d", tt.n)
		assert.InDelta(t, tt.y, y, 1e-3, "y at frame %d", tt.n)
	}

	for n := 0; n < 20000; n += 7 {
		x, y := Angles(n)
		require.True(t, x >= 0 && x < 360, "x=%v at frame %d", x, n)
		require.True(t, y >= 0 && y < 360, "y=%v at frame %d", y, n)
	}
}

func TestUVOffsets(t *testing.T) {
	assert.Equal(t, [NumLayers]mgl32.Vec2{}, UVOffsets(0))

	uv := UVOffsets(500)
	assert.InDelta(t, 0.5, uv[0][0], 1e-6)
	assert.InDelta(t, -0.5, uv[0][1], 1e-6)
	assert.InDelta(t, -0.5, uv[1][0], 1e-6)
	assert.InDelta(t, 0.5, uv[1][1], 1e-6)
	assert.Equal(t, mgl32.Vec2{0, 0}, uv[2])
}

func TestCheckerboard(t *testing.T) {
	texels := Checkerboard(NumLayers, Width, Height, LayerColors[:])
	require.Len(t, texels, NumLayers*Width*Height)

	for l := 0; l < NumLayers; l++ {
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				got := texels[(l*Height+y)*Width+x]
				if (l+y+x)%2 == 1 {
					require.Equal(t, LayerColors[l], got, "layer %d at %d,%d", l, x, y)
				} else {
					require.Zero(t, got, "layer %d at %d,%d", l, x, y)
				}
			}
		}
	}

	b := texelBytes(texels[1:2])
	assert.Equal(t, []byte{0xFF, 0x00, 0x00, 0xFF}, b, "layer 0 is opaque red")
}

func TestComputeParams(t *testing.T) {
	proj := Projection(gfx.DisplayAttrs{FramebufferWidth: 800, FramebufferHeight: 512})

	p := ComputeParams(proj, 0)
	want := proj.Mul4(mgl32.Translate3D(0, 0, -2.5))
	assert.True(t, want.ApproxEqual(p.MVP))

	data, err := gfx.EncodeUniforms(p)
	require.NoError(t, err)
	assert.Len(t, data, Shader.UniformBlocks[0].Size)

	p = ComputeParams(proj, 360)
	model := mgl32.Translate3D(0, 0, -2.5).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(90))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(72)))
	assert.True(t, proj.Mul4(model).ApproxEqualThreshold(p.MVP, 1e-5))
	assert.Equal(t, UVOffsets(360)[0], p.UVOffset0)
}

func TestRunWithTextureArrays(t *testing.T) {
	rec := record.New(record.Options{QuitAfter: 3})
	sample := New(rec.Open, Options{})

	stats, err := app.Run(context.Background(), sample, app.Config{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Frames)
	assert.True(t, rec.IsShutdown())

	setup := rec.Setup()
	assert.Equal(t, 800, setup.Width)
	assert.Equal(t, 512, setup.Height)
	assert.Equal(t, 4, setup.SampleCount)

	proj := Projection(rec.DisplayAttrs())
	passes := rec.Passes()
	require.Len(t, passes, 3)
	for i, pass := range passes {
		assert.Equal(t, i, pass.Frame)
		assert.Equal(t, ClearColor, pass.Action.Color)

		states := pass.DrawStates()
		require.Len(t, states, 1)
		assert.Equal(t, "arraytex", states[0].Label)

		draws := pass.Draws()
		require.Len(t, draws, 1)
		assert.Equal(t, 0, draws[0].Base)
		assert.Equal(t, 36, draws[0].Count)
		assert.Equal(t, 1, draws[0].Instances)

		var uniforms []record.Call
		for _, call := range pass.Calls {
			if call.Op == record.OpApplyUniforms {
				uniforms = append(uniforms, call)
			}
		}
		require.Len(t, uniforms, 1)
		assert.Equal(t, gfx.StageVertex, uniforms[0].Stage)
		assert.Equal(t, ComputeParams(proj, i), uniforms[0].Uniforms)
	}

	ds := passes[0].DrawStates()[0].DrawState
	require.Len(t, ds.Images, 1)
	img, ok := rec.ImageDesc(ds.Images[0])
	require.True(t, ok)
	assert.Equal(t, gfx.ImageArray, img.Type)
	assert.Equal(t, NumLayers, img.Layers)
	assert.Equal(t, gfx.FilterLinear, img.MinFilter)

	pip, ok := rec.PipelineDesc(ds.Pipeline)
	require.True(t, ok)
	assert.Equal(t, gfx.CompareLessEqual, pip.Depth.Compare)
	assert.True(t, pip.Depth.Write)
	assert.Equal(t, gfx.IndexUInt16, pip.IndexType)
	assert.Equal(t, 4, pip.SampleCount)
}

func TestFallbackWithoutTextureArrays(t *testing.T) {
	rec := record.New(record.Options{Features: []gfx.Feature{gfx.FeatureMSAA}})
	sample := New(rec.Open, Options{})

	state, err := sample.OnInit()
	require.NoError(t, err)
	assert.Equal(t, app.Running, state)

	state, err = sample.OnRunning()
	require.NoError(t, err)
	assert.Equal(t, app.Running, state)

	passes := rec.Passes()
	require.Len(t, passes, 1)
	assert.Equal(t, UnsupportedColor, passes[0].Action.Color)

	draws := passes[0].Draws()
	require.NotEmpty(t, draws)
	for _, draw := range draws {
		assert.Equal(t, "debugtext", draw.Label)
	}
	for _, ds := range passes[0].DrawStates() {
		assert.Equal(t, "debugtext", ds.Label)
	}

	for _, call := range rec.Calls() {
		assert.NotEqual(t, "arraytex", call.Label, "%s", call)
		if call.Op == record.OpMakeImage {
			assert.NotEqual(t, "arraytex-checkerboard", call.Label)
		}
	}

	state, err = sample.OnCleanup()
	require.NoError(t, err)
	assert.Equal(t, app.Destroy, state)
	assert.True(t, rec.IsShutdown())
}

func TestFallbackMessageCentered(t *testing.T) {
	rec := record.New(record.Options{Features: []gfx.Feature{}})
	sample := New(rec.Open, Options{})
	_, err := sample.OnInit()
	require.NoError(t, err)

	canvas := sample.text.Canvas()
	cols, rows := canvas.Size()
	x := (cols - len(UnsupportedMessage)) / 2

	canvas.Locate(x, rows/2)
	canvas.Print(UnsupportedMessage)
	line := canvas.Line(rows / 2)
	assert.Equal(t, x, len(line)-len(UnsupportedMessage))
	canvas.Clear()

	_, err = sample.OnRunning()
	require.NoError(t, err)
	assert.True(t, canvas.Empty(), "canvas is cleared after drawing")
}

func TestQuitRequestedStopsRunning(t *testing.T) {
	rec := record.New(record.Options{})
	sample := New(rec.Open, Options{})
	_, err := sample.OnInit()
	require.NoError(t, err)

	state, err := sample.OnRunning()
	require.NoError(t, err)
	assert.Equal(t, app.Running, state)

	rec.RequestQuit()
	state, err = sample.OnRunning()
	require.NoError(t, err)
	assert.Equal(t, app.Cleanup, state)
	assert.Equal(t, 2, rec.Frames())
}

const quadOBJ = `
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func TestMeshPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(quadOBJ), 0o644))

	rec := record.New(record.Options{QuitAfter: 1})
	_, err := app.Run(context.Background(), New(rec.Open, Options{MeshPath: path}), app.Config{})
	require.NoError(t, err)

	passes := rec.Passes()
	require.Len(t, passes, 1)
	draws := passes[0].Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, 6, draws[0].Count)
}

func TestMeshPathMissing(t *testing.T) {
	rec := record.New(record.Options{})
	sample := New(rec.Open, Options{MeshPath: filepath.Join(t.TempDir(), "missing.obj")})

	_, err := app.Run(context.Background(), sample, app.Config{})
	assert.Error(t, err)
	assert.True(t, rec.IsShutdown())
}

func TestProjectionFollowsResize(t *testing.T) {
	rec := record.New(record.Options{})
	sample := New(rec.Open, Options{})
	_, err := sample.OnInit()
	require.NoError(t, err)

	_, err = sample.OnRunning()
	require.NoError(t, err)

	rec.Resize(400, 400)
	_, err = sample.OnRunning()
	require.NoError(t, err)

	passes := rec.Passes()
	require.Len(t, passes, 2)
	uniforms := func(p record.Pass) any {
		for _, call := range p.Calls {
			if call.Op == record.OpApplyUniforms {
				return call.Uniforms
			}
		}
		return nil
	}
	initial := Projection(gfx.DisplayAttrs{FramebufferWidth: 800, FramebufferHeight: 512})
	square := Projection(gfx.DisplayAttrs{FramebufferWidth: 400, FramebufferHeight: 400})
	assert.Equal(t, ComputeParams(initial, 0), uniforms(passes[0]))
	assert.Equal(t, ComputeParams(square, 1), uniforms(passes[1]))
}
