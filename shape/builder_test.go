package shape

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/samples/gfx"
)

var posUV = gfx.VertexLayout{}.
	Add(gfx.AttrPosition, gfx.Float3).
	Add(gfx.AttrTexCoord0, gfx.Float2)

func readVec(data []byte, offset, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4*i:]))
	}
	return out
}

func readIndex(mesh *Mesh, i int) int {
	if mesh.IndexType == gfx.IndexUInt16 {
		return int(binary.LittleEndian.Uint16(mesh.Indices[2*i:]))
	}
	return int(binary.LittleEndian.Uint32(mesh.Indices[4*i:]))
}

func TestBoxCounts(t *testing.T) {
	mesh, err := NewBuilder(posUV).Box(1, 1, 1, 1).Build()
	require.NoError(t, err)

	assert.Equal(t, 24, mesh.NumVertices)
	assert.Equal(t, 36, mesh.NumIndices)
	assert.Len(t, mesh.Vertices, 24*20)
	assert.Equal(t, gfx.IndexUInt16, mesh.IndexType)
	assert.Len(t, mesh.Indices, 36*2)
	assert.Equal(t, []gfx.PrimitiveGroup{{Base: 0, Count: 36}}, mesh.Groups)

	tiled, err := NewBuilder(posUV).Box(1, 1, 1, 3).Build()
	require.NoError(t, err)
	assert.Equal(t, 6*16, tiled.NumVertices)
	assert.Equal(t, 6*9*6, tiled.NumIndices)
}

func TestBoxBoundsAndTexCoords(t *testing.T) {
	mesh, err := NewBuilder(posUV).Box(2, 1, 4, 2).Build()
	require.NoError(t, err)

	stride := posUV.Stride()
	for v := 0; v < mesh.NumVertices; v++ {
		pos := readVec(mesh.Vertices, v*stride, 3)
		assert.LessOrEqual(t, math.Abs(float64(pos[0])), 1.0+1e-6)
		assert.LessOrEqual(t, math.Abs(float64(pos[1])), 0.5+1e-6)
		assert.LessOrEqual(t, math.Abs(float64(pos[2])), 2.0+1e-6)

		uv := readVec(mesh.Vertices, v*stride+12, 2)
		assert.True(t, uv[0] >= 0 && uv[0] <= 1, "u=%f", uv[0])
		assert.True(t, uv[1] >= 0 && uv[1] <= 1, "v=%f", uv[1])
	}
}

// Every triangle must wind counter-clockwise seen from outside the box.
func TestBoxWindingFacesOutward(t *testing.T) {
	mesh, err := NewBuilder(posUV).Box(1, 1, 1, 1).Build()
	require.NoError(t, err)

	stride := posUV.Stride()
	pos := func(i int) mgl32.Vec3 {
		p := readVec(mesh.Vertices, readIndex(mesh, i)*stride, 3)
		return mgl32.Vec3{p[0], p[1], p[2]}
	}

	for tri := 0; tri < mesh.NumIndices; tri += 3 {
		a, b, c := pos(tri), pos(tri+1), pos(tri+2)
		normal := b.Sub(a).Cross(c.Sub(a))
		center := a.Add(b).Add(c).Mul(1.0 / 3)
		assert.Greater(t, normal.Dot(center), float32(0), "triangle %d faces inward", tri/3)
	}
}

func TestBuilderGroupsAndTransform(t *testing.T) {
	b := NewBuilder(posUV)
	b.Box(1, 1, 1, 1)
	b.Transform = mgl32.Translate3D(0, 10, 0)
	b.Plane(2, 2, 1)

	mesh, err := b.Build()
	require.NoError(t, err)
	require.Len(t, mesh.Groups, 2)
	assert.Equal(t, gfx.PrimitiveGroup{Base: 36, Count: 6}, mesh.Groups[1])

	stride := posUV.Stride()
	first := readIndex(mesh, mesh.Groups[1].Base)
	pos := readVec(mesh.Vertices, first*stride, 3)
	assert.InDelta(t, 10, pos[1], 1e-6)
}

func TestBuilderColorAndNormalFormats(t *testing.T) {
	layout := gfx.VertexLayout{}.
		Add(gfx.AttrPosition, gfx.Float3).
		Add(gfx.AttrNormal, gfx.Float3).
		Add(gfx.AttrColor0, gfx.UByte4N)

	b := NewBuilder(layout)
	b.Color = mgl32.Vec4{1, 0, 0.5, 1}
	mesh, err := b.Plane(1, 1, 1).Build()
	require.NoError(t, err)

	stride := layout.Stride()
	require.Equal(t, 28, stride)
	normal := readVec(mesh.Vertices, 12, 3)
	assert.Equal(t, []float32{0, 1, 0}, normal)
	assert.Equal(t, []byte{255, 0, 128, 255}, mesh.Vertices[24:28])
}

func TestBuildErrors(t *testing.T) {
	_, err := NewBuilder(posUV).Build()
	assert.Error(t, err)

	noPos := gfx.VertexLayout{}.Add(gfx.AttrTexCoord0, gfx.Float2)
	_, err = NewBuilder(noPos).Box(1, 1, 1, 1).Build()
	assert.Error(t, err)
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

func TestLoadOBJ(t *testing.T) {
	mesh, err := LoadOBJ(strings.NewReader(quadOBJ), nil, posUV)
	require.NoError(t, err)

	assert.Equal(t, 4, mesh.NumVertices)
	assert.Equal(t, 6, mesh.NumIndices)
	assert.Equal(t, []gfx.PrimitiveGroup{{Base: 0, Count: 6}}, mesh.Groups)

	var got []int
	for i := 0; i < mesh.NumIndices; i++ {
		got = append(got, readIndex(mesh, i))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, got)

	uv := readVec(mesh.Vertices, 2*posUV.Stride()+12, 2)
	assert.Equal(t, []float32{1, 0}, uv)
}

func TestLoadOBJErrors(t *testing.T) {
	tests := []struct {
		name   string
		obj    string
		layout gfx.VertexLayout
		want   string
	}{
		{
			name:   "vertex out of range",
			obj:    "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
			layout: posUV,
			want:   "face references vertex 9 of 3",
		},
		{
			name:   "no position",
			obj:    quadOBJ,
			layout: gfx.VertexLayout{}.Add(gfx.AttrTexCoord0, gfx.Float2),
			want:   "no position",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = LoadOBJ(strings.NewReader(tt.obj), nil, tt.layout)
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
