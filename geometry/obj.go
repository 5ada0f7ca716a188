package geometry

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// objIndex is one corner of a face: position, texcoord and normal index,
// zero based, -1 when absent.
type objIndex struct {
	v, t, n int
}

// LoadOBJ reads a Wavefront OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open obj file %s: %w", path, err)
	}
	defer f.Close()

	m, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseOBJ decodes an OBJ stream and flattens all of its objects into one
// mesh. Polygons are fan triangulated. Faces without normals get a flat
// face normal. Materials are ignored.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	dec, err := obj.DecodeReader(r, nil)
	if err != nil {
		return nil, err
	}

	m := &Mesh{}
	seen := make(map[objIndex]uint32)
	for _, o := range dec.Objects {
		for fi, face := range o.Faces {
			if len(face.Vertices) < 3 {
				return nil, fmt.Errorf("object %q face %d: face needs at least 3 vertices", o.Name, fi)
			}
			corners := make([]objIndex, len(face.Vertices))
			for i := range face.Vertices {
				c, err := cornerOf(dec, face, i)
				if err != nil {
					return nil, fmt.Errorf("object %q face %d: %w", o.Name, fi, err)
				}
				corners[i] = c
			}
			for i := 1; i+1 < len(corners); i++ {
				tri := [3]objIndex{corners[0], corners[i], corners[i+1]}
				var flat mgl32.Vec3
				if tri[0].n < 0 || tri[1].n < 0 || tri[2].n < 0 {
					flat = faceNormal(objVec3(dec.Vertices, tri[0].v), objVec3(dec.Vertices, tri[1].v), objVec3(dec.Vertices, tri[2].v))
				}
				for _, c := range tri {
					m.Indices = append(m.Indices, m.objVertex(dec, seen, c, flat))
				}
			}
		}
	}
	if len(m.Indices) == 0 {
		return nil, errors.New("obj contains no faces")
	}
	return m, nil
}

// cornerOf checks the indices of corner i of face against the decoded
// arrays. A position out of range is an error, texcoord and normal indices
// out of range are treated as absent.
func cornerOf(dec *obj.Decoder, face obj.Face, i int) (objIndex, error) {
	c := objIndex{v: face.Vertices[i], t: -1, n: -1}
	if count := len(dec.Vertices) / 3; c.v < 0 || c.v >= count {
		return c, fmt.Errorf("vertex index %d out of range (have %d)", c.v+1, count)
	}
	if i < len(face.Uvs) && inRange(face.Uvs[i], len(dec.Uvs)/2) {
		c.t = face.Uvs[i]
	}
	if i < len(face.Normals) && inRange(face.Normals[i], len(dec.Normals)/3) {
		c.n = face.Normals[i]
	}
	return c, nil
}

func inRange(i, count int) bool { return i >= 0 && i < count }

func (m *Mesh) objVertex(dec *obj.Decoder, seen map[objIndex]uint32, c objIndex, flat mgl32.Vec3) uint32 {
	// vertices with generated normals are never shared
	if c.n >= 0 {
		if idx, ok := seen[c]; ok {
			return idx
		}
	}
	var uv mgl32.Vec2
	if c.t >= 0 {
		uv = mgl32.Vec2{dec.Uvs[c.t*2], dec.Uvs[c.t*2+1]}
	}
	n := flat
	if c.n >= 0 {
		n = objVec3(dec.Normals, c.n)
	}
	idx := m.addVertex(objVec3(dec.Vertices, c.v), n, uv)
	if c.n >= 0 {
		seen[c] = idx
	}
	return idx
}

func objVec3(a []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{a[i*3], a[i*3+1], a[i*3+2]}
}

func faceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl32.Vec3{0, 0, 1}
	}
	return n.Normalize()
}
