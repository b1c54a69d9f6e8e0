package fullscreenquad

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/gfx/record"
)

func TestTime(t *testing.T) {
	assert.InDelta(t, 1.0/60, Time(0), 1e-7)
	assert.InDelta(t, 1.0, Time(59), 1e-6)
	assert.InDelta(t, 10.0, Time(599), 1e-5)
}

func TestCorners(t *testing.T) {
	b := cornerBytes()
	assert.Len(t, b, 4*Layout.Stride())
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, b[8:12], "second corner x is 1.0")
}

func TestRun(t *testing.T) {
	rec := record.New(record.Options{QuitAfter: 5})

	stats, err := app.Run(context.Background(), New(rec.Open), app.Config{})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Frames)
	assert.True(t, rec.IsShutdown())

	setup := rec.Setup()
	assert.Equal(t, 600, setup.Width)
	assert.Equal(t, 600, setup.Height)
	assert.Equal(t, 1, setup.SampleCount)

	passes := rec.Passes()
	require.Len(t, passes, 5)
	for i, pass := range passes {
		require.Len(t, pass.Calls, 3, "draw state, uniforms, draw")
		assert.Equal(t, record.OpApplyDrawState, pass.Calls[0].Op)

		uniforms := pass.Calls[1]
		assert.Equal(t, record.OpApplyUniforms, uniforms.Op)
		assert.Equal(t, gfx.StageFragment, uniforms.Stage)
		params, ok := uniforms.Uniforms.(Params)
		require.True(t, ok)
		assert.InDelta(t, Time(i), params.Time, 1e-5)
		assert.Len(t, uniforms.Data, 16)

		draw := pass.Calls[2]
		assert.Equal(t, record.OpDraw, draw.Op)
		assert.Equal(t, 0, draw.Base)
		assert.Equal(t, 4, draw.Count)
	}

	pip, ok := rec.PipelineDesc(passes[0].Calls[0].DrawState.Pipeline)
	require.True(t, ok)
	assert.Equal(t, gfx.TriangleStrip, pip.Primitive)
	assert.False(t, pip.Depth.Enabled())
	assert.Equal(t, gfx.IndexNone, pip.IndexType)
}

func TestInitFailure(t *testing.T) {
	rec := record.New(record.Options{})
	_, err := rec.Open(Setup())
	require.NoError(t, err)

	// A device can only be opened once, so OnInit fails.
	stats, err := app.Run(context.Background(), New(rec.Open), app.Config{})
	assert.Error(t, err)
	assert.Zero(t, stats.Frames)
}
