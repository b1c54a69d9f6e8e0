package shape

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/samples/gfx"
)

// Mesh is interleaved vertex data plus an index list, ready for upload.
type Mesh struct {
	Layout      gfx.VertexLayout
	Vertices    []byte
	NumVertices int
	Indices     []byte
	NumIndices  int
	IndexType   gfx.IndexType
	Groups      []gfx.PrimitiveGroup
}

func (m *Mesh) VertexBufferDesc(label string) gfx.BufferDesc {
	return gfx.BufferDesc{Label: label, Type: gfx.VertexBuffer, Content: m.Vertices}
}

func (m *Mesh) IndexBufferDesc(label string) gfx.BufferDesc {
	return gfx.BufferDesc{Label: label, Type: gfx.IndexBuffer, Content: m.Indices}
}

// Group returns the i'th primitive group.
func (m *Mesh) Group(i int) gfx.PrimitiveGroup {
	return m.Groups[i]
}

// LoadOBJFile reads a Wavefront OBJ file and the .mtl next to it, if any.
func LoadOBJFile(path string, layout gfx.VertexLayout) (*Mesh, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "shape: open mesh")
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	matPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if matFile, err := os.Open(matPath); err == nil {
		defer matFile.Close()
		matReader = matFile
	}

	mesh, err := LoadOBJ(meshFile, matReader, layout)
	if err != nil {
		return nil, errors.Wrapf(err, "shape: %s", path)
	}
	return mesh, nil
}

type objKey struct {
	vertex, uv, normal int
}

// LoadOBJ decodes an OBJ stream into a Mesh. Faces are triangulated as fans,
// identical position/uv/normal triples are shared, and every OBJ object
// becomes one primitive group. A nil material reader is allowed.
func LoadOBJ(meshReader, matReader io.Reader, layout gfx.VertexLayout) (*Mesh, error) {
	if !layout.Contains(gfx.AttrPosition) {
		return nil, errors.New("shape: vertex layout has no position")
	}
	if matReader == nil {
		matReader = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(meshReader, matReader)
	if err != nil {
		return nil, errors.Wrap(err, "shape: decode obj")
	}

	var vertices []vertex
	var indices []uint32
	var groups []gfx.PrimitiveGroup
	unique := make(map[objKey]uint32)

	numPositions := len(decoder.Vertices) / 3
	addVertex := func(face obj.Face, faceIndex int) error {
		key := objKey{vertex: face.Vertices[faceIndex], uv: -1, normal: -1}
		if key.vertex < 0 || key.vertex >= numPositions {
			return errors.Newf("shape: face references vertex %d of %d", key.vertex+1, numPositions)
		}
		if faceIndex < len(face.Uvs) {
			key.uv = face.Uvs[faceIndex]
		}
		if faceIndex < len(face.Normals) {
			key.normal = face.Normals[faceIndex]
		}

		index, exists := unique[key]
		if !exists {
			vert := vertex{
				Position: mgl32.Vec3{
					decoder.Vertices[key.vertex*3],
					decoder.Vertices[key.vertex*3+1],
					decoder.Vertices[key.vertex*3+2],
				},
				Color: mgl32.Vec4{1, 1, 1, 1},
			}
			if key.uv >= 0 && key.uv*2+1 < len(decoder.Uvs) {
				vert.TexCoord = mgl32.Vec2{
					decoder.Uvs[key.uv*2],
					1.0 - decoder.Uvs[key.uv*2+1],
				}
			}
			if key.normal >= 0 && key.normal*3+2 < len(decoder.Normals) {
				vert.Normal = mgl32.Vec3{
					decoder.Normals[key.normal*3],
					decoder.Normals[key.normal*3+1],
					decoder.Normals[key.normal*3+2],
				}
			}

			index = uint32(len(vertices))
			vertices = append(vertices, vert)
			unique[key] = index
		}
		indices = append(indices, index)
		return nil
	}

	for _, decodedObj := range decoder.Objects {
		group := gfx.PrimitiveGroup{Base: len(indices)}
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, fi := range [3]int{0, i - 1, i} {
					if err := addVertex(face, fi); err != nil {
						return nil, err
					}
				}
			}
		}
		group.Count = len(indices) - group.Base
		if group.Count > 0 {
			groups = append(groups, group)
		}
	}

	if len(indices) == 0 {
		return nil, errors.New("shape: obj contains no faces")
	}
	return newMesh(layout, vertices, indices, groups)
}
