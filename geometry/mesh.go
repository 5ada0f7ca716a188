// Package geometry builds indexed triangle meshes on the CPU. The renderer
// uploads them to vertex arrays.
package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex attribute locations shared with the shaders.
const (
	PositionLocation = 0
	NormalLocation   = 1
	TexCoordLocation = 2
)

// FloatsPerVertex is the interleaved layout: position(3) normal(3) texcoord(2).
const FloatsPerVertex = 8

// Stride in bytes of an interleaved vertex.
const Stride = FloatsPerVertex * 4

type Mesh struct {
	Positions []float32
	Normals   []float32
	TexCoords []float32
	Indices   []uint32
}

func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

func (m *Mesh) IndexCount() int { return len(m.Indices) }

// Interleaved packs the attributes into one buffer. Missing normals or
// texture coordinates are written as zero.
func (m *Mesh) Interleaved() []float32 {
	n := m.VertexCount()
	out := make([]float32, 0, n*FloatsPerVertex)
	for i := 0; i < n; i++ {
		out = append(out, m.Positions[i*3:i*3+3]...)
		if len(m.Normals) >= i*3+3 {
			out = append(out, m.Normals[i*3:i*3+3]...)
		} else {
			out = append(out, 0, 0, 0)
		}
		if len(m.TexCoords) >= i*2+2 {
			out = append(out, m.TexCoords[i*2:i*2+2]...)
		} else {
			out = append(out, 0, 0)
		}
	}
	return out
}

// Bounds returns the axis aligned bounding box of the positions.
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	if m.VertexCount() == 0 {
		return
	}
	min = mgl32.Vec3{m.Positions[0], m.Positions[1], m.Positions[2]}
	max = min
	for i := 3; i < len(m.Positions); i += 3 {
		for k := 0; k < 3; k++ {
			v := m.Positions[i+k]
			if v < min[k] {
				min[k] = v
			}
			if v > max[k] {
				max[k] = v
			}
		}
	}
	return
}

func (m *Mesh) addVertex(p, n mgl32.Vec3, uv mgl32.Vec2) uint32 {
	idx := uint32(m.VertexCount())
	m.Positions = append(m.Positions, p[0], p[1], p[2])
	m.Normals = append(m.Normals, n[0], n[1], n[2])
	m.TexCoords = append(m.TexCoords, uv[0], uv[1])
	return idx
}

// NewBox returns an axis aligned box with per-face normals and texture
// coordinates, 4 vertices and 2 triangles per face, wound counter clockwise
// when seen from outside.
func NewBox(min, max mgl32.Vec3) *Mesh {
	m := &Mesh{}
	faces := []struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{max[0], min[1], max[2]}, {max[0], min[1], min[2]}, {max[0], max[1], min[2]}, {max[0], max[1], max[2]}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{min[0], min[1], min[2]}, {min[0], min[1], max[2]}, {min[0], max[1], max[2]}, {min[0], max[1], min[2]}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{min[0], max[1], max[2]}, {max[0], max[1], max[2]}, {max[0], max[1], min[2]}, {min[0], max[1], min[2]}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{min[0], min[1], min[2]}, {max[0], min[1], min[2]}, {max[0], min[1], max[2]}, {min[0], min[1], max[2]}}},
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{min[0], min[1], max[2]}, {max[0], min[1], max[2]}, {max[0], max[1], max[2]}, {min[0], max[1], max[2]}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{max[0], min[1], min[2]}, {min[0], min[1], min[2]}, {min[0], max[1], min[2]}, {max[0], max[1], min[2]}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for _, f := range faces {
		var idx [4]uint32
		for i, c := range f.corners {
			idx[i] = m.addVertex(c, f.normal, uvs[i])
		}
		m.Indices = append(m.Indices, idx[0], idx[1], idx[2], idx[0], idx[2], idx[3])
	}
	return m
}

// NewQuad returns a rectangle in the z=0 plane facing +z, with texture
// coordinates spanning 0..1.
func NewQuad(min, max mgl32.Vec2) *Mesh {
	m := &Mesh{}
	n := mgl32.Vec3{0, 0, 1}
	m.addVertex(mgl32.Vec3{min[0], min[1], 0}, n, mgl32.Vec2{0, 0})
	m.addVertex(mgl32.Vec3{max[0], min[1], 0}, n, mgl32.Vec2{1, 0})
	m.addVertex(mgl32.Vec3{max[0], max[1], 0}, n, mgl32.Vec2{1, 1})
	m.addVertex(mgl32.Vec3{min[0], max[1], 0}, n, mgl32.Vec2{0, 1})
	m.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return m
}

// NewPlane is the unit square with only positions and normals, drawn with
// indices 0,1,2 0,2,3.
func NewPlane() *Mesh {
	return &Mesh{
		Positions: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Normals: []float32{
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
