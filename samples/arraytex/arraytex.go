// Package arraytex renders a cube textured from the three layers of an
// array texture, each layer scrolled with its own UV offset.
package arraytex

import (
	"encoding/binary"
	"image/color"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/samples/app"
	"github.com/vkngwrapper/samples/debugtext"
	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/shaders"
	"github.com/vkngwrapper/samples/shape"
)

const (
	NumLayers = 3
	Width     = 16
	Height    = 16
)

// LayerColors are the checkerboard colors of layers 0..2 as little-endian
// RGBA: red, green and blue.
var LayerColors = [NumLayers]uint32{0xFF0000FF, 0xFF00FF00, 0xFFFF0000}

const UnsupportedMessage = "This demo needs array texture support"

var (
	ClearColor       = mgl32.Vec4{0.2, 0.2, 0.3, 1}
	UnsupportedColor = mgl32.Vec4{0.5, 0, 0, 1}
)

// Layout of the cube vertices.
var Layout = gfx.VertexLayout{}.
	Add(gfx.AttrPosition, gfx.Float3).
	Add(gfx.AttrTexCoord0, gfx.Float2)

// Params is the vertex stage uniform block.
type Params struct {
	MVP       mgl32.Mat4
	UVOffset0 mgl32.Vec2
	UVOffset1 mgl32.Vec2
	UVOffset2 mgl32.Vec2
	_         [2]float32
}

// Shader describes the arraytex program.
var Shader = gfx.ShaderDesc{
	Name:  shaders.ArrayTexture,
	Label: "arraytex",
	UniformBlocks: []gfx.UniformBlockDesc{
		{Stage: gfx.StageVertex, Size: 96},
	},
	Images: []gfx.ShaderImageDesc{
		{Stage: gfx.StageFragment, Type: gfx.ImageArray},
	},
}

type Options struct {
	// MeshPath replaces the cube with a Wavefront OBJ mesh when set.
	MeshPath string
}

type Sample struct {
	open gfx.OpenFunc
	opts Options

	dev       gfx.Device
	text      *debugtext.Text
	supported bool

	drawState gfx.DrawState
	group     gfx.PrimitiveGroup
	attrs     gfx.DisplayAttrs
	proj      mgl32.Mat4
	frame     int
}

func New(open gfx.OpenFunc, opts Options) *Sample {
	return &Sample{open: open, opts: opts}
}

func Setup() gfx.Setup {
	setup := gfx.WindowSetupMSAA4(800, 512, "Array Texture Sample")
	setup.DefaultPassAction = gfx.ClearPass(ClearColor)
	return setup
}

// Checkerboard fills layers*height*width texels, layer by layer and row by
// row. A texel is colors[layer] when layer+y+x is odd and zero otherwise.
func Checkerboard(layers, width, height int, colors []uint32) []uint32 {
	texels := make([]uint32, layers*width*height)
	for l := 0; l < layers; l++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if (l+y+x)&1 == 1 {
					texels[(l*height+y)*width+x] = colors[l]
				}
			}
		}
	}
	return texels
}

func texelBytes(texels []uint32) []byte {
	b := make([]byte, 4*len(texels))
	for i, t := range texels {
		binary.LittleEndian.PutUint32(b[4*i:], t)
	}
	return b
}

// Angles returns the cube rotation around X and Y for frame n, in degrees.
func Angles(n int) (x, y float32) {
	x = float32(math.Mod(float64(n)/4, 360))
	y = float32(math.Mod(float64(n)/5, 360))
	return x, y
}

// UVOffsets returns the texture coordinate offsets of the three layers for
// frame n.
func UVOffsets(n int) [NumLayers]mgl32.Vec2 {
	o := float32(n) * 0.001
	return [NumLayers]mgl32.Vec2{{o, -o}, {-o, o}, {0, 0}}
}

func Projection(attrs gfx.DisplayAttrs) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(45), attrs.Aspect(), 0.01, 100)
}

// ComputeParams builds the uniform block of frame n.
func ComputeParams(proj mgl32.Mat4, n int) Params {
	ax, ay := Angles(n)
	model := mgl32.Translate3D(0, 0, -2.5).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(ax))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(ay)))

	uv := UVOffsets(n)
	return Params{
		MVP:       proj.Mul4(model),
		UVOffset0: uv[0],
		UVOffset1: uv[1],
		UVOffset2: uv[2],
	}
}

func (s *Sample) OnInit() (app.State, error) {
	dev, err := s.open(Setup())
	if err != nil {
		return app.Cleanup, err
	}
	s.dev = dev

	s.text, err = debugtext.Setup(dev, debugtext.Options{Scale: 2, Color: color.RGBA{R: 255, G: 255, B: 255, A: 255}})
	if err != nil {
		return app.Cleanup, err
	}

	s.supported = dev.QueryFeature(gfx.FeatureTextureArray)
	if !s.supported {
		return app.Running, nil
	}

	img, err := dev.MakeImage(gfx.ImageDesc{
		Label:     "arraytex-checkerboard",
		Type:      gfx.ImageArray,
		Width:     Width,
		Height:    Height,
		Layers:    NumLayers,
		Format:    gfx.PixelFormatRGBA8,
		MinFilter: gfx.FilterLinear,
		MagFilter: gfx.FilterLinear,
		WrapU:     gfx.WrapRepeat,
		WrapV:     gfx.WrapRepeat,
		Content:   texelBytes(Checkerboard(NumLayers, Width, Height, LayerColors[:])),
	})
	if err != nil {
		return app.Cleanup, err
	}

	mesh, err := s.buildMesh()
	if err != nil {
		return app.Cleanup, err
	}
	s.group = mesh.Group(0)

	vb, err := dev.MakeBuffer(mesh.VertexBufferDesc("arraytex-vertices"))
	if err != nil {
		return app.Cleanup, err
	}
	ib, err := dev.MakeBuffer(mesh.IndexBufferDesc("arraytex-indices"))
	if err != nil {
		return app.Cleanup, err
	}

	shd, err := dev.MakeShader(Shader)
	if err != nil {
		return app.Cleanup, err
	}

	pip, err := dev.MakePipeline(gfx.PipelineDesc{
		Label:     "arraytex",
		Shader:    shd,
		Layout:    Layout,
		Primitive: gfx.Triangles,
		IndexType: mesh.IndexType,
		Depth: gfx.DepthState{
			Compare: gfx.CompareLessEqual,
			Write:   true,
		},
		Cull:        gfx.CullNone,
		SampleCount: dev.DisplayAttrs().SampleCount,
	})
	if err != nil {
		return app.Cleanup, err
	}

	s.drawState = gfx.DrawState{
		Pipeline:     pip,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Images:       []gfx.Image{img},
	}
	s.updateProjection()
	return app.Running, nil
}

// updateProjection rebuilds the projection when the framebuffer changed size.
func (s *Sample) updateProjection() {
	if attrs := s.dev.DisplayAttrs(); attrs != s.attrs {
		s.attrs = attrs
		s.proj = Projection(attrs)
	}
}

func (s *Sample) buildMesh() (*shape.Mesh, error) {
	if s.opts.MeshPath != "" {
		mesh, err := shape.LoadOBJFile(s.opts.MeshPath, Layout)
		if err != nil {
			return nil, err
		}
		if len(mesh.Groups) == 0 {
			return nil, errors.Newf("arraytex: mesh %s has no faces", s.opts.MeshPath)
		}
		return mesh, nil
	}
	return shape.NewBuilder(Layout).Box(1, 1, 1, 1).Build()
}

func (s *Sample) OnRunning() (app.State, error) {
	if !s.supported {
		return s.notSupported()
	}

	s.updateProjection()
	params := ComputeParams(s.proj, s.frame)

	s.dev.BeginPass(gfx.ClearPass(ClearColor))
	s.dev.ApplyDrawState(s.drawState)
	s.dev.ApplyUniforms(gfx.StageVertex, 0, params)
	gfx.DrawGroup(s.dev, s.group)
	s.dev.EndPass()
	if err := s.dev.CommitFrame(); err != nil {
		return app.Cleanup, err
	}
	s.frame++

	if s.dev.QuitRequested() {
		return app.Cleanup, nil
	}
	return app.Running, nil
}

func (s *Sample) notSupported() (app.State, error) {
	cols, rows := s.text.Canvas().Size()

	s.dev.BeginPass(gfx.ClearPass(UnsupportedColor))
	s.text.Locate((cols-len(UnsupportedMessage))/2, rows/2)
	s.text.Print(UnsupportedMessage + "\n")
	drawErr := s.text.Draw()
	s.dev.EndPass()
	err := s.dev.CommitFrame()
	if err = errors.CombineErrors(drawErr, err); err != nil {
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
