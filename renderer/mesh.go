package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/asyncgl/geometry"
)

// Mesh is an indexed triangle list uploaded to the GPU.
type Mesh struct {
	vao, vbo, ibo uint32
	count         int32
}

func NewMesh(m *geometry.Mesh) *Mesh {
	g := &Mesh{count: int32(m.IndexCount())}
	vertices := m.Interleaved()

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &g.ibo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ibo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(geometry.PositionLocation)
	gl.VertexAttribPointer(geometry.PositionLocation, 3, gl.FLOAT, false, geometry.Stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(geometry.NormalLocation)
	gl.VertexAttribPointer(geometry.NormalLocation, 3, gl.FLOAT, false, geometry.Stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(geometry.TexCoordLocation)
	gl.VertexAttribPointer(geometry.TexCoordLocation, 2, gl.FLOAT, false, geometry.Stride, gl.PtrOffset(6*4))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return g
}

func (g *Mesh) Draw() {
	gl.BindVertexArray(g.vao)
	gl.DrawElements(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

func (g *Mesh) Delete() {
	gl.DeleteVertexArrays(1, &g.vao)
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ibo)
}
