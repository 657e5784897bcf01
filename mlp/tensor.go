package mlp

import "fmt"

// Mat32 is a dense row-major matrix of float32.  Indexing with the wrong
// shape is a programming error and panics.
type Mat32 struct {
	Rows, Cols int
	V          []float32
}

func MakeMat32(rows, cols int) *Mat32 {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("invalid shape: (%d, %d)", rows, cols))
	}
	return &Mat32{
		Rows: rows,
		Cols: cols,
		V:    make([]float32, rows*cols),
	}
}

func (m *Mat32) At(i, j int) float32 {
	return m.V[i*m.Cols+j]
}

func (m *Mat32) Set(i, j int, v float32) {
	m.V[i*m.Cols+j] = v
}

// Row returns a view of row i, sharing storage with m.
func (m *Mat32) Row(i int) []float32 {
	return m.V[i*m.Cols : i*m.Cols+m.Cols]
}

func (m *Mat32) SameShape(o *Mat32) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols
}

func (m *Mat32) Zero() {
	for i := range m.V {
		m.V[i] = 0
	}
}

func Mat32Copy(in *Mat32) *Mat32 {
	out := MakeMat32(in.Rows, in.Cols)
	copy(out.V, in.V)
	return out
}
