package gfx

import "fmt"

type BufferType int

const (
	VertexBuffer BufferType = iota
	IndexBuffer
)

func (t BufferType) String() string {
	switch t {
	case VertexBuffer:
		return "VertexBuffer"
	case IndexBuffer:
		return "IndexBuffer"
	}
	return fmt.Sprintf("BufferType(%d)", int(t))
}

type IndexType int

const (
	IndexNone IndexType = iota
	IndexUInt16
	IndexUInt32
)

func (t IndexType) Size() int {
	switch t {
	case IndexUInt16:
		return 2
	case IndexUInt32:
		return 4
	}
	return 0
}

func (t IndexType) String() string {
	switch t {
	case IndexNone:
		return "IndexNone"
	case IndexUInt16:
		return "IndexUInt16"
	case IndexUInt32:
		return "IndexUInt32"
	}
	return fmt.Sprintf("IndexType(%d)", int(t))
}

type ImageType int

const (
	Image2D ImageType = iota
	ImageArray
)

func (t ImageType) String() string {
	switch t {
	case Image2D:
		return "Image2D"
	case ImageArray:
		return "ImageArray"
	}
	return fmt.Sprintf("ImageType(%d)", int(t))
}

type PixelFormat int

const (
	PixelFormatRGBA8 PixelFormat = iota
)

// BytesPerPixel of the format's texel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8:
		return 4
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8:
		return "RGBA8"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

func (w Wrap) String() string {
	switch w {
	case WrapRepeat:
		return "Repeat"
	case WrapClampToEdge:
		return "ClampToEdge"
	case WrapMirroredRepeat:
		return "MirroredRepeat"
	}
	return fmt.Sprintf("Wrap(%d)", int(w))
}

type PrimitiveType int

const (
	Triangles PrimitiveType = iota
	TriangleStrip
	Lines
)

func (p PrimitiveType) String() string {
	switch p {
	case Triangles:
		return "Triangles"
	case TriangleStrip:
		return "TriangleStrip"
	case Lines:
		return "Lines"
	}
	return fmt.Sprintf("PrimitiveType(%d)", int(p))
}

type CompareFunc int

const (
	CompareAlways CompareFunc = iota
	CompareLess
	CompareLessEqual
)

func (c CompareFunc) String() string {
	switch c {
	case CompareAlways:
		return "Always"
	case CompareLess:
		return "Less"
	case CompareLessEqual:
		return "LessEqual"
	}
	return fmt.Sprintf("CompareFunc(%d)", int(c))
}

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (c CullMode) String() string {
	switch c {
	case CullNone:
		return "None"
	case CullBack:
		return "Back"
	case CullFront:
		return "Front"
	}
	return fmt.Sprintf("CullMode(%d)", int(c))
}

type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StageFragment:
		return "Fragment"
	}
	return fmt.Sprintf("ShaderStage(%d)", int(s))
}

type Feature int

const (
	FeatureTextureArray Feature = iota
	FeatureInstancing
	FeatureMSAA
)

func (f Feature) String() string {
	switch f {
	case FeatureTextureArray:
		return "TextureArray"
	case FeatureInstancing:
		return "Instancing"
	case FeatureMSAA:
		return "MSAA"
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// ParseFeature accepts the names produced by Feature.String, case sensitive.
func ParseFeature(name string) (Feature, bool) {
	for _, f := range []Feature{FeatureTextureArray, FeatureInstancing, FeatureMSAA} {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

type Action int

const (
	ActionClear Action = iota
	ActionLoad
	ActionDontCare
)

func (a Action) String() string {
	switch a {
	case ActionClear:
		return "Clear"
	case ActionLoad:
		return "Load"
	case ActionDontCare:
		return "DontCare"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}
