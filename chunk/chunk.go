// Package chunk defines the unit of migration in the repartitioner: an
// extracted mesh subset plus an ownership flag (spec.md section 3,
// "Chunk").
package chunk

import "github.com/notargets/meshpartition/tree"

// Chunk pairs a mesh tree with an ownership flag. The mesh pointer is
// borrowed unless Owns is true, in which case Free releases it.
type Chunk struct {
	Mesh *tree.Node
	Owns bool
}

// New returns a borrowed chunk wrapping mesh.
func New(mesh *tree.Node) Chunk { return Chunk{Mesh: mesh, Owns: false} }

// NewOwned returns an owned chunk wrapping mesh.
func NewOwned(mesh *tree.Node) Chunk { return Chunk{Mesh: mesh, Owns: true} }

// Free releases the underlying mesh iff the chunk owns it. It is safe to
// call more than once: after the first call Mesh is nil and Owns is
// false, so subsequent calls are no-ops. This makes "exactly one free()
// per owned chunk" trivial to satisfy by construction (spec.md section 5).
func (c *Chunk) Free() {
	if c.Owns {
		c.Mesh = nil
		c.Owns = false
	}
}
