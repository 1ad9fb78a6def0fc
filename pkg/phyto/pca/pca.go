// Package pca reduces a sites x variables matrix to two principal components
// of its standardized covariance.
package pca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/numeric"
)

// ErrDegenerateInput is returned for matrices PCA is undefined on
var ErrDegenerateInput = errors.New("degenerate PCA input")

// Components is the number of retained components
const Components = 2

// degenerateRowTolerance is the row norm below which (A-λI) gives no direction
const degenerateRowTolerance = 1e-12

// Result holds the two retained components
type Result struct {
	// Eigenvalues in non-increasing order
	Eigenvalues [Components]float64 `json:"eigenvalues"`
	// Eigenvectors are unit length, one entry per variable
	Eigenvectors [Components][]float64 `json:"eigenvectors"`
	// ExplainedVariance is each eigenvalue over the total variance
	ExplainedVariance [Components]float64 `json:"explainedVariance"`
	// Scores are the standardized rows projected onto the eigenvectors
	Scores [][Components]float64 `json:"scores"`
	// Loadings are eigenvector * sqrt(eigenvalue), one row per variable
	Loadings [][Components]float64 `json:"loadings"`
}

// Run standardizes each column of matrix and decomposes its covariance
func Run(matrix [][]float64) (*Result, error) {
	rows := len(matrix)
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrDegenerateInput, rows)
	}
	cols := len(matrix[0])
	if cols < 2 {
		return nil, fmt.Errorf("%w: need at least 2 columns, got %d", ErrDegenerateInput, cols)
	}

	z := mat.NewDense(rows, cols, nil)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i, row := range matrix {
			if len(row) != cols {
				return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDegenerateInput, i, len(row), cols)
			}
			column[i] = row[j]
		}
		std, _, _, err := numeric.Standardize(column)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %w", ErrDegenerateInput, j, err)
		}
		z.SetCol(j, std)
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, z, nil)

	var (
		values  [Components]float64
		vectors [Components][]float64
		err     error
	)
	if cols == 2 {
		values, vectors = eigen2(cov.At(0, 0), cov.At(0, 1), cov.At(1, 1))
	} else {
		values, vectors, err = eigenTop(cov)
		if err != nil {
			return nil, err
		}
	}

	total := mat.Trace(cov)
	result := &Result{
		Eigenvalues:  values,
		Eigenvectors: vectors,
		Scores:       make([][Components]float64, rows),
		Loadings:     make([][Components]float64, cols),
	}
	for k := 0; k < Components; k++ {
		orient(vectors[k])
		if total > 0 {
			result.ExplainedVariance[k] = values[k] / total
		}
		scale := math.Sqrt(math.Max(0, values[k]))
		for j := 0; j < cols; j++ {
			result.Loadings[j][k] = vectors[k][j] * scale
		}
	}
	for i := 0; i < rows; i++ {
		r := z.RawRowView(i)
		for k := 0; k < Components; k++ {
			result.Scores[i][k] = floats.Dot(r, vectors[k])
		}
	}

	klog.V(3).InfoS("Computed principal components",
		"rows", rows,
		"variables", cols,
		"eigenvalues", values,
		"explained", result.ExplainedVariance)

	return result, nil
}

// eigen2 solves the symmetric 2x2 matrix [[a b] [b d]] in closed form
func eigen2(a, b, d float64) ([Components]float64, [Components][]float64) {
	tr := a + d
	det := a*d - b*b
	disc := math.Sqrt(math.Max(0, tr*tr-4*det))
	values := [Components]float64{(tr + disc) / 2, (tr - disc) / 2}

	var vectors [Components][]float64
	for k, lambda := range values {
		v, ok := nullVector2(a-lambda, b, d-lambda)
		if !ok {
			// A = λI, every direction is an eigenvector
			v = []float64{0, 0}
			v[k] = 1
		}
		vectors[k] = v
	}
	return values, vectors
}

// nullVector2 returns the unit vector orthogonal to the larger row of
// [[p q] [q s]], or false when both rows vanish
func nullVector2(p, q, s float64) ([]float64, bool) {
	r1 := math.Hypot(p, q)
	r2 := math.Hypot(q, s)
	var v []float64
	switch {
	case r1 >= r2 && r1 > degenerateRowTolerance:
		v = []float64{q / r1, -p / r1}
	case r2 > degenerateRowTolerance:
		v = []float64{s / r2, -q / r2}
	default:
		return nil, false
	}
	return v, true
}

// eigenTop returns the two largest eigenpairs of a symmetric matrix
func eigenTop(cov *mat.SymDense) ([Components]float64, [Components][]float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return [Components]float64{}, [Components][]float64{}, fmt.Errorf("%w: eigendecomposition did not converge", ErrDegenerateInput)
	}
	ascending := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	n := len(ascending)
	var (
		values  [Components]float64
		vectors [Components][]float64
	)
	for k := 0; k < Components; k++ {
		idx := n - 1 - k
		values[k] = ascending[idx]
		v := mat.Col(nil, idx, &ev)
		floats.Scale(1/floats.Norm(v, 2), v)
		vectors[k] = v
	}
	return values, vectors, nil
}

// orient flips v so its largest-magnitude component is positive
func orient(v []float64) {
	idx := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[idx]) {
			idx = i
		}
	}
	if v[idx] < 0 {
		floats.Scale(-1, v)
	}
}
