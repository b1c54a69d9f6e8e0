package debugtext

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/shaders"
)

// DefaultScale is the framebuffer pixels per glyph pixel.
const DefaultScale = 2

type Options struct {
	// Scale defaults to DefaultScale.
	Scale int
	// Color is the initial text color, white when zero.
	Color color.RGBA
}

// Text owns the GPU resources of a text overlay. Print and Printf fill the
// canvas during a frame, Draw renders and clears it inside the current pass.
type Text struct {
	dev    gfx.Device
	canvas *Canvas
	scale  int
	image  gfx.Image
	ds     gfx.DrawState

	uploaded []cell
}

// Layout of the overlay quad: position and texcoord, both float2.
var Layout = gfx.VertexLayout{}.
	Add(gfx.AttrPosition, gfx.Float2).
	Add(gfx.AttrTexCoord0, gfx.Float2)

// quadParams is the vertex uniform block of the overlay: the size of the
// canvas in clip space units, measured from the top left corner.
type quadParams struct {
	Extent mgl32.Vec2
	_      [2]float32
}

// Setup sizes a canvas to fill the framebuffer at the given scale and creates
// the overlay image, quad and pipeline on dev.
func Setup(dev gfx.Device, opts Options) (*Text, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	attrs := dev.DisplayAttrs()
	gw, gh := GlyphSize()
	cols := attrs.FramebufferWidth / (gw * scale)
	rows := attrs.FramebufferHeight / (gh * scale)
	if cols < 1 || rows < 1 {
		return nil, errors.Newf("debugtext: framebuffer %dx%d too small for scale %d",
			attrs.FramebufferWidth, attrs.FramebufferHeight, scale)
	}

	t := &Text{dev: dev, canvas: NewCanvas(cols, rows), scale: scale}
	if opts.Color != (color.RGBA{}) {
		t.canvas.SetColor(opts.Color)
	}

	imgDesc := gfx.ImageDesc{
		Label:     "debugtext-glyphs",
		Type:      gfx.Image2D,
		Width:     cols * gw,
		Height:    rows * gh,
		Format:    gfx.PixelFormatRGBA8,
		MinFilter: gfx.FilterNearest,
		MagFilter: gfx.FilterNearest,
		WrapU:     gfx.WrapClampToEdge,
		WrapV:     gfx.WrapClampToEdge,
		Dynamic:   true,
	}
	imgDesc.Content = make([]byte, imgDesc.ByteSize())
	img, err := dev.MakeImage(imgDesc)
	if err != nil {
		return nil, errors.Wrap(err, "debugtext: glyph image")
	}
	t.image = img

	vbuf, err := dev.MakeBuffer(gfx.BufferDesc{
		Label:   "debugtext-quad",
		Type:    gfx.VertexBuffer,
		Content: quadVertices(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "debugtext: quad")
	}

	shd, err := dev.MakeShader(gfx.ShaderDesc{
		Name:   shaders.DebugText,
		Label:  "debugtext",
		UniformBlocks: []gfx.UniformBlockDesc{
			{Stage: gfx.StageVertex, Size: 16},
		},
		Images: []gfx.ShaderImageDesc{{Stage: gfx.StageFragment, Type: gfx.Image2D}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "debugtext: shader")
	}

	pip, err := dev.MakePipeline(gfx.PipelineDesc{
		Label:     "debugtext",
		Shader:    shd,
		Layout:    Layout,
		Primitive: gfx.TriangleStrip,
		Depth:     gfx.DepthState{Compare: gfx.CompareAlways},
		Cull:      gfx.CullNone,
		Blend:     gfx.BlendState{Enabled: true},
	})
	if err != nil {
		return nil, errors.Wrap(err, "debugtext: pipeline")
	}

	t.ds = gfx.DrawState{
		Pipeline:     pip,
		VertexBuffer: vbuf,
		Images:       []gfx.Image{img},
	}
	t.uploaded = make([]cell, len(t.canvas.cells))
	for i := range t.uploaded {
		t.uploaded[i] = cell{r: ' '}
	}
	return t, nil
}

// quadVertices lays out a unit triangle strip. Positions run from the top
// left corner (0,0) to the bottom right (1,1) and double as texcoords.
func quadVertices() []byte {
	verts := []float32{
		0, 1, 0, 1,
		1, 1, 1, 1,
		0, 0, 0, 0,
		1, 0, 1, 0,
	}
	out := make([]byte, 4*len(verts))
	for i, f := range verts {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// extent scales the canvas pixels to the current framebuffer, so glyphs
// keep landing on whole pixels after a resize.
func (t *Text) extent() quadParams {
	attrs := t.dev.DisplayAttrs()
	gw, gh := GlyphSize()
	cols, rows := t.canvas.Size()
	return quadParams{Extent: mgl32.Vec2{
		2 * float32(cols*gw*t.scale) / float32(max(attrs.FramebufferWidth, 1)),
		2 * float32(rows*gh*t.scale) / float32(max(attrs.FramebufferHeight, 1)),
	}}
}

func (t *Text) Canvas() *Canvas {
	return t.canvas
}

func (t *Text) SetColor(c color.RGBA) {
	t.canvas.SetColor(c)
}

func (t *Text) Locate(x, y int) {
	t.canvas.Locate(x, y)
}

func (t *Text) Print(s string) {
	t.canvas.Print(s)
}

func (t *Text) Printf(format string, args ...any) {
	t.canvas.Print(fmt.Sprintf(format, args...))
}

// Draw renders the canvas into the active pass and clears it. An empty
// canvas issues no device calls. The glyph image is only re-uploaded when
// the text differs from the last upload.
func (t *Text) Draw() error {
	if t.canvas.Empty() {
		return nil
	}
	if !t.canvas.equal(t.uploaded) {
		if err := t.dev.UpdateImage(t.image, t.canvas.Rasterize().Pix); err != nil {
			return errors.Wrap(err, "debugtext: upload glyphs")
		}
		t.uploaded = t.canvas.snapshot()
	}

	t.dev.ApplyDrawState(t.ds)
	t.dev.ApplyUniforms(gfx.StageVertex, 0, t.extent())
	t.dev.Draw(0, 4, 1)
	t.canvas.Clear()
	return nil
}
