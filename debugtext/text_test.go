package debugtext

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/gfx/record"
)

func TestCanvasPrint(t *testing.T) {
	c := NewCanvas(8, 3)
	assert.True(t, c.Empty())

	c.Print("ab\tc\nline two!")
	assert.Equal(t, "ab  c", c.Line(0))
	assert.Equal(t, "line two", c.Line(1))
	assert.Equal(t, "!", c.Line(2))
	assert.False(t, c.Empty())

	c.Print("\rX")
	assert.Equal(t, "X", c.Line(2))

	c.Print("\ndropped")
	assert.Equal(t, "X", c.Line(2))

	c.Clear()
	assert.True(t, c.Empty())
	c.Printf("%d%%", 50)
	assert.Equal(t, "50%", c.Line(0))

	c.Locate(3, 1)
	c.Print("mid")
	assert.Equal(t, "   mid", c.Line(1))

	c.Locate(-2, -1)
	c.Print("<")
	assert.Equal(t, "<0%", c.Line(0))
}

func TestCanvasRasterize(t *testing.T) {
	c := NewCanvas(4, 2)
	img := c.Rasterize()
	assert.Equal(t, 28, img.Bounds().Dx())
	assert.Equal(t, 26, img.Bounds().Dy())
	for _, b := range img.Pix {
		require.Zero(t, b)
	}

	red := color.RGBA{R: 255, A: 255}
	c.SetColor(red)
	c.Print("  #")
	img = c.Rasterize()

	lit := 0
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			px := img.RGBAAt(x, y)
			if px.A == 0 {
				continue
			}
			lit++
			assert.Equal(t, red, px)
			assert.True(t, x >= 14 && x < 21 && y < 13, "pixel %d,%d outside cell 2,0", x, y)
		}
	}
	assert.Greater(t, lit, 0)
}

func openRecorder(t *testing.T) (*record.Device, gfx.Device) {
	t.Helper()
	rec := record.New(record.Options{})
	dev, err := rec.Open(gfx.WindowSetupMSAA4(800, 512, "text"))
	require.NoError(t, err)
	return rec, dev
}

func TestSetupSizesCanvas(t *testing.T) {
	rec, dev := openRecorder(t)

	text, err := Setup(dev, Options{})
	require.NoError(t, err)
	cols, rows := text.Canvas().Size()
	assert.Equal(t, 800/14, cols)
	assert.Equal(t, 512/26, rows)

	img, ok := rec.ImageDesc(text.ds.Images[0])
	require.True(t, ok)
	assert.Equal(t, cols*7, img.Width)
	assert.Equal(t, rows*13, img.Height)
	assert.True(t, img.Dynamic)

	pip, ok := rec.PipelineDesc(text.ds.Pipeline)
	require.True(t, ok)
	assert.True(t, pip.Blend.Enabled)
	assert.False(t, pip.Depth.Enabled())
	assert.Equal(t, gfx.TriangleStrip, pip.Primitive)

	_, err = Setup(dev, Options{Scale: 100})
	assert.Error(t, err)
}

func TestDrawUploadsOnlyOnChange(t *testing.T) {
	rec, dev := openRecorder(t)
	text, err := Setup(dev, Options{})
	require.NoError(t, err)

	frame := func(msg string) {
		dev.BeginPass(gfx.ClearPass(mgl32.Vec4{0, 0, 0, 1}))
		text.Print(msg)
		require.NoError(t, text.Draw())
		dev.EndPass()
		require.NoError(t, dev.CommitFrame())
	}

	frame("hello")
	frame("hello")
	frame("")
	frame("bye")

	passes := rec.Passes()
	require.Len(t, passes, 4)

	uploads := func(p record.Pass) int {
		n := 0
		for _, call := range p.Calls {
			if call.Op == record.OpUpdateImage {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, uploads(passes[0]))
	assert.Len(t, passes[0].Draws(), 1)
	assert.Equal(t, 0, uploads(passes[1]))
	assert.Len(t, passes[1].Draws(), 1)
	assert.Empty(t, passes[2].Calls)
	assert.Equal(t, 1, uploads(passes[3]))

	draw := passes[0].Draws()[0]
	assert.Equal(t, 0, draw.Base)
	assert.Equal(t, 4, draw.Count)
	assert.Equal(t, 1, draw.Instances)
	assert.True(t, text.Canvas().Empty())
}

func TestDrawFollowsFramebufferSize(t *testing.T) {
	rec, dev := openRecorder(t)
	text, err := Setup(dev, Options{})
	require.NoError(t, err)
	cols, rows := text.Canvas().Size()

	extent := func() mgl32.Vec2 {
		dev.BeginPass(gfx.ClearPass(mgl32.Vec4{0, 0, 0, 1}))
		text.Print("resize")
		require.NoError(t, text.Draw())
		dev.EndPass()
		require.NoError(t, dev.CommitFrame())

		calls := rec.FrameCalls(rec.Frames() - 1)
		for _, call := range calls {
			if call.Op == record.OpApplyUniforms {
				return call.Uniforms.(quadParams).Extent
			}
		}
		require.Fail(t, "no uniforms applied")
		return mgl32.Vec2{}
	}

	before := extent()
	assert.InDelta(t, 2*float32(cols*14)/800, before[0], 1e-6)
	assert.InDelta(t, 2*float32(rows*26)/512, before[1], 1e-6)

	rec.Resize(1600, 1024)
	after := extent()
	assert.InDelta(t, before[0]/2, after[0], 1e-6)
	assert.InDelta(t, before[1]/2, after[1], 1e-6)

	c, r := text.Canvas().Size()
	assert.Equal(t, cols, c)
	assert.Equal(t, rows, r)
}
