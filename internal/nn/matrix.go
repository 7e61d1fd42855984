package nn

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// addRowVector adds v to every row of m in place.
func addRowVector(m *mat.Dense, v []float64) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		floats.Add(m.RawRowView(i), v)
	}
}

// addColSums accumulates the column sums of m into dst.
func addColSums(dst []float64, m mat.RawMatrixer) {
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		floats.Add(dst, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}
}

// reshape returns an r x c matrix over m's values in row-major order.
// The result shares storage with m when m is contiguous.
func reshape(m *mat.Dense, r, c int) *mat.Dense {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		m = mat.DenseCopyOf(m)
		raw = m.RawMatrix()
	}
	return mat.NewDense(r, c, raw.Data[:r*c])
}

// mulElem returns a ⊙ b as a new matrix.
func mulElem(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

// timeSlice returns the [batch, size] view of time step t of a recurrent
// batch laid out as [batch, T*size].
func timeSlice(m *mat.Dense, t, size int) *mat.Dense {
	r, _ := m.Dims()
	return m.Slice(0, r, t*size, (t+1)*size).(*mat.Dense)
}
