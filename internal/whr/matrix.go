package whr

import (
	"errors"
	"math"
)

// matrix is a dense row-major n x n matrix. WHR's system is small (at most
// a few dozen players) and dense thanks to the shared prior, so Gaussian
// elimination beats a sparse iterative solver here.
type matrix struct {
	n    int
	data []float64
}

func newMatrix(n int) *matrix {
	return &matrix{n: n, data: make([]float64, n*n)}
}

func (m *matrix) at(i, j int) float64     { return m.data[i*m.n+j] }
func (m *matrix) set(i, j int, v float64) { m.data[i*m.n+j] = v }
func (m *matrix) add(i, j int, v float64) { m.data[i*m.n+j] += v }

// clone returns a deep copy of m.
func (m *matrix) clone() *matrix {
	out := &matrix{n: m.n, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// solve returns delta such that a*delta = b, via Gaussian elimination with
// partial (magnitude-based) pivoting. a is not modified.
func solve(a *matrix, b []float64) ([]float64, error) {
	n := a.n
	aug := a.clone()
	rhs := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(aug.at(col, col))
		for row := col + 1; row < n; row++ {
			if v := math.Abs(aug.at(row, col)); v > best {
				best, pivot = v, row
			}
		}
		if best < 1e-12 {
			return nil, errors.New("singular matrix (zero pivot)")
		}
		if pivot != col {
			swapRows(aug, col, pivot)
			rhs[col], rhs[pivot] = rhs[pivot], rhs[col]
		}

		pv := aug.at(col, col)
		for row := col + 1; row < n; row++ {
			factor := aug.at(row, col) / pv
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				aug.add(row, k, -factor*aug.at(col, k))
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for k := row + 1; k < n; k++ {
			sum -= aug.at(row, k) * x[k]
		}
		x[row] = sum / aug.at(row, row)
	}
	return x, nil
}

func swapRows(m *matrix, i, j int) {
	for k := 0; k < m.n; k++ {
		m.data[i*m.n+k], m.data[j*m.n+k] = m.data[j*m.n+k], m.data[i*m.n+k]
	}
}

// invert returns a's inverse via Gauss-Jordan elimination with partial
// pivoting on an [a | I] augmented matrix.
func invert(a *matrix) (*matrix, error) {
	n := a.n
	left := a.clone()
	right := newMatrix(n)
	for i := 0; i < n; i++ {
		right.set(i, i, 1)
	}

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(left.at(col, col))
		for row := col + 1; row < n; row++ {
			if v := math.Abs(left.at(row, col)); v > best {
				best, pivot = v, row
			}
		}
		if best < 1e-12 {
			return nil, errors.New("singular matrix (zero pivot)")
		}
		if pivot != col {
			swapRows(left, col, pivot)
			swapRows(right, col, pivot)
		}

		pv := left.at(col, col)
		for k := 0; k < n; k++ {
			left.set(col, k, left.at(col, k)/pv)
			right.set(col, k, right.at(col, k)/pv)
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := left.at(row, col)
			if factor == 0 {
				continue
			}
			for k := 0; k < n; k++ {
				left.add(row, k, -factor*left.at(col, k))
				right.add(row, k, -factor*right.at(col, k))
			}
		}
	}

	return right, nil
}
