package gfx

import "github.com/go-gl/mathgl/mgl32"

type BufferDesc struct {
	Label string
	Type  BufferType
	// Size defaults to len(Content) when zero.
	Size    int
	Content []byte
}

type ImageDesc struct {
	Label  string
	Type   ImageType
	Width  int
	Height int
	// Layers is only meaningful for ImageArray; 2D images always have one.
	Layers    int
	Format    PixelFormat
	MinFilter Filter
	MagFilter Filter
	WrapU     Wrap
	WrapV     Wrap
	// Dynamic images may be rewritten with Device.UpdateImage.
	Dynamic bool
	// Content holds all layers back to back, rows top to bottom.
	Content []byte
}

// NumLayers of the image, never less than one.
func (d ImageDesc) NumLayers() int {
	if d.Type != ImageArray || d.Layers < 1 {
		return 1
	}
	return d.Layers
}

// ByteSize of the full image content.
func (d ImageDesc) ByteSize() int {
	return d.Width * d.Height * d.NumLayers() * d.Format.BytesPerPixel()
}

type UniformBlockDesc struct {
	Stage ShaderStage
	Size  int
}

type ShaderImageDesc struct {
	Stage ShaderStage
	Type  ImageType
}

// ShaderDesc names a shader program the backend resolves on its own (the
// Vulkan backend reads <Name>.vert.spv and <Name>.frag.spv). Uniform blocks
// occupy descriptor bindings 0..n-1 in declaration order, images follow.
type ShaderDesc struct {
	Name          string
	Label         string
	UniformBlocks []UniformBlockDesc
	Images        []ShaderImageDesc
}

// UniformBlock returns the index of the slot'th block of the given stage.
func (d ShaderDesc) UniformBlock(stage ShaderStage, slot int) (int, bool) {
	n := 0
	for i, block := range d.UniformBlocks {
		if block.Stage != stage {
			continue
		}
		if n == slot {
			return i, true
		}
		n++
	}
	return -1, false
}

type DepthState struct {
	Compare CompareFunc
	Write   bool
}

// Enabled reports whether the depth attachment takes part in the draw.
func (d DepthState) Enabled() bool {
	return d.Compare != CompareAlways || d.Write
}

// BlendState enables straight alpha blending: src*a + dst*(1-a).
type BlendState struct {
	Enabled bool
}

type PipelineDesc struct {
	Label     string
	Shader    Shader
	Layout    VertexLayout
	Primitive PrimitiveType
	IndexType IndexType
	Depth     DepthState
	Cull      CullMode
	Blend     BlendState
	// SampleCount zero means the display's sample count.
	SampleCount int
}

// DrawState is everything one kind of draw call binds.
type DrawState struct {
	Pipeline     Pipeline
	VertexBuffer Buffer
	IndexBuffer  Buffer
	Images       []Image
}

// PrimitiveGroup is a range of elements (indices when the pipeline is
// indexed, vertices otherwise) inside the bound buffers.
type PrimitiveGroup struct {
	Base  int
	Count int
}

type PassAction struct {
	ColorAction Action
	Color       mgl32.Vec4
	DepthAction Action
	Depth       float32
}

// ClearPass clears color to c and depth to 1.
func ClearPass(c mgl32.Vec4) PassAction {
	return PassAction{
		ColorAction: ActionClear,
		Color:       c,
		DepthAction: ActionClear,
		Depth:       1,
	}
}

// Setup configures the window and graphics context a Device is opened with.
type Setup struct {
	Width       int
	Height      int
	Title       string
	SampleCount int
	HighDPI     bool
	// DefaultPassAction is what samples pass to BeginPass.
	DefaultPassAction PassAction
}

func WindowSetup(width, height int, title string) Setup {
	return Setup{
		Width:             width,
		Height:            height,
		Title:             title,
		SampleCount:       1,
		DefaultPassAction: ClearPass(mgl32.Vec4{0, 0, 0, 1}),
	}
}

func WindowSetupMSAA4(width, height int, title string) Setup {
	setup := WindowSetup(width, height, title)
	setup.SampleCount = 4
	return setup
}

type DisplayAttrs struct {
	FramebufferWidth  int
	FramebufferHeight int
	SampleCount       int
	WindowTitle       string
}

func (a DisplayAttrs) Aspect() float32 {
	if a.FramebufferHeight == 0 {
		return 1
	}
	return float32(a.FramebufferWidth) / float32(a.FramebufferHeight)
}
