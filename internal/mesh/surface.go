// Package mesh provides triangle surfaces, the GIfTI surface codec and the
// geometric helpers needed by spin permutations: vertex normals, hemisphere
// concatenation and parcel centroids on the sphere.
package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a triangulated mesh.
type Surface struct {
	Points    []r3.Vec
	Triangles [][3]int
	// Normals is nil until ComputeNormals is called.
	Normals []r3.Vec
}

// NumPoints returns the vertex count.
func (s *Surface) NumPoints() int {
	return len(s.Points)
}

// Validate checks that every triangle references an existing vertex.
func (s *Surface) Validate() error {
	n := len(s.Points)
	for i, tri := range s.Triangles {
		for _, v := range tri {
			if v < 0 || v >= n {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, v, n)
			}
		}
	}
	if s.Normals != nil && len(s.Normals) != n {
		return fmt.Errorf("%d normals for %d points", len(s.Normals), n)
	}
	return nil
}

// Combine joins surfaces into one, offsetting triangle indices. Normals are
// kept only when every input carries them.
func Combine(surfs ...*Surface) *Surface {
	out := &Surface{}
	keepNormals := len(surfs) > 0
	for _, s := range surfs {
		if s.Normals == nil {
			keepNormals = false
		}
	}

	for _, s := range surfs {
		offset := len(out.Points)
		out.Points = append(out.Points, s.Points...)
		for _, tri := range s.Triangles {
			out.Triangles = append(out.Triangles, [3]int{tri[0] + offset, tri[1] + offset, tri[2] + offset})
		}
		if keepNormals {
			out.Normals = append(out.Normals, s.Normals...)
		}
	}
	return out
}

// ComputeNormals sets unit vertex normals from area-weighted face normals.
// Faces are not split at sharp edges. Vertices belonging to no triangle get a
// zero normal.
func ComputeNormals(s *Surface) {
	normals := make([]r3.Vec, len(s.Points))
	for _, tri := range s.Triangles {
		a, b, c := s.Points[tri[0]], s.Points[tri[1]], s.Points[tri[2]]
		// Cross product length is twice the face area.
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, v := range tri {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if r3.Norm(n) > 0 {
			normals[i] = r3.Unit(n)
		}
	}
	s.Normals = normals
}

// Centroids returns, for each label other than background, the mean
// coordinate of its vertices projected back onto the sphere at the parcel's
// mean radius. Labels come back sorted ascending.
func Centroids(sphere *Surface, labels []int, background int) ([]int, []r3.Vec, error) {
	if len(labels) != len(sphere.Points) {
		return nil, nil, fmt.Errorf("%d labels for %d points", len(labels), len(sphere.Points))
	}

	type acc struct {
		sum    r3.Vec
		radius float64
		n      int
	}
	groups := make(map[int]*acc)
	for i, lab := range labels {
		if lab == background {
			continue
		}
		g, ok := groups[lab]
		if !ok {
			g = &acc{}
			groups[lab] = g
		}
		p := sphere.Points[i]
		g.sum = r3.Add(g.sum, p)
		g.radius += r3.Norm(p)
		g.n++
	}

	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]r3.Vec, len(keys))
	for i, k := range keys {
		g := groups[k]
		mean := r3.Scale(1/float64(g.n), g.sum)
		if r3.Norm(mean) == 0 {
			return nil, nil, fmt.Errorf("parcel %d has a degenerate centroid", k)
		}
		out[i] = r3.Scale(g.radius/float64(g.n), r3.Unit(mean))
	}
	return keys, out, nil
}
