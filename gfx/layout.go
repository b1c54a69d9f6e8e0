package gfx

import "fmt"

type VertexFormat int

const (
	Float2 VertexFormat = iota
	Float3
	Float4
	UByte4N
)

func (f VertexFormat) Size() int {
	switch f {
	case Float2:
		return 8
	case Float3:
		return 12
	case Float4:
		return 16
	case UByte4N:
		return 4
	}
	return 0
}

func (f VertexFormat) String() string {
	switch f {
	case Float2:
		return "Float2"
	case Float3:
		return "Float3"
	case Float4:
		return "Float4"
	case UByte4N:
		return "UByte4N"
	}
	return fmt.Sprintf("VertexFormat(%d)", int(f))
}

// VertexAttr names a vertex shader input. Its numeric value is the input
// location the shaders in this module are written against.
type VertexAttr int

const (
	AttrPosition VertexAttr = iota
	AttrNormal
	AttrTexCoord0
	AttrColor0
)

func (a VertexAttr) String() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrNormal:
		return "normal"
	case AttrTexCoord0:
		return "texcoord0"
	case AttrColor0:
		return "color0"
	}
	return fmt.Sprintf("VertexAttr(%d)", int(a))
}

type VertexComponent struct {
	Attr   VertexAttr
	Format VertexFormat
}

// VertexLayout describes one interleaved vertex buffer. Components are
// packed in order without padding.
type VertexLayout struct {
	Components []VertexComponent
}

func NewVertexLayout(components ...VertexComponent) VertexLayout {
	return VertexLayout{Components: components}
}

// Add returns a copy of the layout with one more component appended.
func (l VertexLayout) Add(attr VertexAttr, format VertexFormat) VertexLayout {
	components := make([]VertexComponent, 0, len(l.Components)+1)
	components = append(components, l.Components...)
	components = append(components, VertexComponent{Attr: attr, Format: format})
	return VertexLayout{Components: components}
}

func (l VertexLayout) Empty() bool {
	return len(l.Components) == 0
}

func (l VertexLayout) Stride() int {
	stride := 0
	for _, c := range l.Components {
		stride += c.Format.Size()
	}
	return stride
}

// Offset returns the byte offset of component i within a vertex.
func (l VertexLayout) Offset(i int) int {
	offset := 0
	for _, c := range l.Components[:i] {
		offset += c.Format.Size()
	}
	return offset
}

// Index returns the position of attr in the layout, or -1.
func (l VertexLayout) Index(attr VertexAttr) int {
	for i, c := range l.Components {
		if c.Attr == attr {
			return i
		}
	}
	return -1
}

func (l VertexLayout) Contains(attr VertexAttr) bool {
	return l.Index(attr) >= 0
}

func (l VertexLayout) Equal(other VertexLayout) bool {
	if len(l.Components) != len(other.Components) {
		return false
	}
	for i := range l.Components {
		if l.Components[i] != other.Components[i] {
			return false
		}
	}
	return true
}
