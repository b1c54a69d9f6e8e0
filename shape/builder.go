// Package shape builds indexed meshes for simple solids in an arbitrary
// gfx.VertexLayout, one primitive group per shape.
package shape

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/samples/gfx"
)

type vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
	Color    mgl32.Vec4
}

type plane struct {
	origin, u, v, normal mgl32.Vec3
}

type shapeDesc struct {
	planes    []plane
	tiles     int
	transform mgl32.Mat4
	color     mgl32.Vec4
}

// Builder accumulates shapes. Transform and Color apply to shapes added
// after they are set.
type Builder struct {
	Layout    gfx.VertexLayout
	Transform mgl32.Mat4
	Color     mgl32.Vec4

	shapes []shapeDesc
}

func NewBuilder(layout gfx.VertexLayout) *Builder {
	return &Builder{
		Layout:    layout,
		Transform: mgl32.Ident4(),
		Color:     mgl32.Vec4{1, 1, 1, 1},
	}
}

func (b *Builder) add(tiles int, planes ...plane) *Builder {
	if tiles < 1 {
		tiles = 1
	}
	b.shapes = append(b.shapes, shapeDesc{
		planes:    planes,
		tiles:     tiles,
		transform: b.Transform,
		color:     b.Color,
	})
	return b
}

// Box adds a cuboid centered on the origin. Each face is split into
// tiles x tiles quads with texture coordinates spanning 0..1.
func (b *Builder) Box(width, height, depth float32, tiles int) *Builder {
	hx, hy, hz := width/2, height/2, depth/2
	return b.add(tiles,
		plane{mgl32.Vec3{-hx, -hy, hz}, mgl32.Vec3{width, 0, 0}, mgl32.Vec3{0, height, 0}, mgl32.Vec3{0, 0, 1}},
		plane{mgl32.Vec3{hx, -hy, -hz}, mgl32.Vec3{-width, 0, 0}, mgl32.Vec3{0, height, 0}, mgl32.Vec3{0, 0, -1}},
		plane{mgl32.Vec3{hx, -hy, hz}, mgl32.Vec3{0, 0, -depth}, mgl32.Vec3{0, height, 0}, mgl32.Vec3{1, 0, 0}},
		plane{mgl32.Vec3{-hx, -hy, -hz}, mgl32.Vec3{0, 0, depth}, mgl32.Vec3{0, height, 0}, mgl32.Vec3{-1, 0, 0}},
		plane{mgl32.Vec3{-hx, hy, hz}, mgl32.Vec3{width, 0, 0}, mgl32.Vec3{0, 0, -depth}, mgl32.Vec3{0, 1, 0}},
		plane{mgl32.Vec3{-hx, -hy, -hz}, mgl32.Vec3{width, 0, 0}, mgl32.Vec3{0, 0, depth}, mgl32.Vec3{0, -1, 0}},
	)
}

// Plane adds a plane in XZ facing +Y.
func (b *Builder) Plane(width, depth float32, tiles int) *Builder {
	return b.add(tiles,
		plane{mgl32.Vec3{-width / 2, 0, depth / 2}, mgl32.Vec3{width, 0, 0}, mgl32.Vec3{0, 0, -depth}, mgl32.Vec3{0, 1, 0}},
	)
}

func (b *Builder) Build() (*Mesh, error) {
	if len(b.shapes) == 0 {
		return nil, errors.New("shape: nothing to build")
	}
	if !b.Layout.Contains(gfx.AttrPosition) {
		return nil, errors.New("shape: vertex layout has no position")
	}

	var vertices []vertex
	var indices []uint32
	var groups []gfx.PrimitiveGroup

	for _, s := range b.shapes {
		normalMat := s.transform.Mat3().Inv().Transpose()
		group := gfx.PrimitiveGroup{Base: len(indices)}

		for _, p := range s.planes {
			base := uint32(len(vertices))
			n := s.tiles
			for j := 0; j <= n; j++ {
				for i := 0; i <= n; i++ {
					fu := float32(i) / float32(n)
					fv := float32(j) / float32(n)
					pos := p.origin.Add(p.u.Mul(fu)).Add(p.v.Mul(fv))
					vertices = append(vertices, vertex{
						Position: mgl32.TransformCoordinate(pos, s.transform),
						Normal:   normalMat.Mul3x1(p.normal).Normalize(),
						TexCoord: mgl32.Vec2{fu, 1 - fv},
						Color:    s.color,
					})
				}
			}

			row := uint32(n + 1)
			for j := 0; j < n; j++ {
				for i := 0; i < n; i++ {
					a := base + uint32(j)*row + uint32(i)
					c := a + row
					indices = append(indices, a, a+1, c+1, a, c+1, c)
				}
			}
		}

		group.Count = len(indices) - group.Base
		groups = append(groups, group)
	}

	return newMesh(b.Layout, vertices, indices, groups)
}

func newMesh(layout gfx.VertexLayout, vertices []vertex, indices []uint32, groups []gfx.PrimitiveGroup) (*Mesh, error) {
	mesh := &Mesh{
		Layout:      layout,
		NumVertices: len(vertices),
		NumIndices:  len(indices),
		Groups:      groups,
	}

	stride := layout.Stride()
	mesh.Vertices = make([]byte, 0, stride*len(vertices))
	for _, v := range vertices {
		for _, c := range layout.Components {
			var err error
			mesh.Vertices, err = appendComponent(mesh.Vertices, c, v)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(vertices) <= math.MaxUint16+1 {
		mesh.IndexType = gfx.IndexUInt16
		mesh.Indices = make([]byte, 0, 2*len(indices))
		for _, index := range indices {
			mesh.Indices = binary.LittleEndian.AppendUint16(mesh.Indices, uint16(index))
		}
	} else {
		mesh.IndexType = gfx.IndexUInt32
		mesh.Indices = make([]byte, 0, 4*len(indices))
		for _, index := range indices {
			mesh.Indices = binary.LittleEndian.AppendUint32(mesh.Indices, index)
		}
	}

	return mesh, nil
}

func appendComponent(dst []byte, c gfx.VertexComponent, v vertex) ([]byte, error) {
	var value mgl32.Vec4
	switch c.Attr {
	case gfx.AttrPosition:
		value = v.Position.Vec4(1)
	case gfx.AttrNormal:
		value = v.Normal.Vec4(0)
	case gfx.AttrTexCoord0:
		value = mgl32.Vec4{v.TexCoord[0], v.TexCoord[1], 0, 0}
	case gfx.AttrColor0:
		value = v.Color
	default:
		return nil, errors.Newf("shape: unsupported vertex attribute %s", c.Attr)
	}

	switch c.Format {
	case gfx.Float2, gfx.Float3, gfx.Float4:
		for _, f := range value[:c.Format.Size()/4] {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
		}
	case gfx.UByte4N:
		for _, f := range value {
			dst = append(dst, byte(mgl32.Clamp(f, 0, 1)*255+0.5))
		}
	default:
		return nil, errors.Newf("shape: unsupported vertex format %s", c.Format)
	}
	return dst, nil
}
