package emath

// Solves the Poisson equation laplace(U) = F on a grid, with Neumann
// boundaries, via the discrete cosine transform. The routines follow
// pde_fft.cpp from the PFSTMO package; the 2D type-I DCT (FFTW's
// REDFT00) comes from gonum's dsp/fourier, run along rows then columns.

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// dct2 returns the unnormalized 2D type-I DCT of g. Running it twice
// scales the input by 4(w-1)(h-1).
func (g FloatGrid) dct2() FloatGrid {
	width := g.Dx()
	height := g.Dy()
	out := g.Copy()

	rows := fourier.NewDCT(width)
	row := make([]float64, width)
	for y := 0; y < height; y++ {
		line := out.values[y*width : (y+1)*width]
		rows.Transform(row, line)
		copy(line, row)
	}

	cols := fourier.NewDCT(height)
	col := make([]float64, height)
	res := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = out.Get(x, y)
		}
		cols.Transform(res, col)
		for y := 0; y < height; y++ {
			out.Set(x, y, res[y])
		}
	}

	return out
}

// toEigenSpace returns T = EVy^-1 * A * (EVx^-1)^tr
func toEigenSpace(A FloatGrid) FloatGrid {
	width := A.Dx()
	height := A.Dy()
	T := A.dct2()

	norm := 1.0 / float64((height-1)*(width-1))
	for i := range T.values {
		T.values[i] *= norm
	}
	for x := 0; x < width; x++ {
		T.Set(x, 0, T.Get(x, 0)*0.5)
		T.Set(x, height-1, T.Get(x, height-1)*0.5)
	}
	for y := 0; y < height; y++ {
		T.Set(0, y, T.Get(0, y)*0.5)
		T.Set(width-1, y, T.Get(width-1, y)*0.5)
	}
	return T
}

// fromEigenSpace returns T = EVy A EVx^tr; A is not modified.
func fromEigenSpace(A FloatGrid) FloatGrid {
	width := A.Dx()
	height := A.Dy()
	S := A.Copy()

	// the DCT is not exactly the transform needed, so scale the input
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			S.Set(x, y, S.Get(x, y)*0.25)
		}
	}
	for x := 1; x < width-1; x++ {
		S.Set(x, 0, S.Get(x, 0)*0.5)
		S.Set(x, height-1, S.Get(x, height-1)*0.5)
	}
	for y := 1; y < height-1; y++ {
		S.Set(0, y, S.Get(0, y)*0.5)
		S.Set(width-1, y, S.Get(width-1, y)*0.5)
	}

	return S.dct2()
}

// laplaceEigenvalues of the 1D laplace operator on n points.
func laplaceEigenvalues(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		u := math.Sin(float64(i) / float64(2*(n-1)) * math.Pi)
		v[i] = -4 * u * u
	}
	return v
}

// makeCompatibleBoundary shifts the boundary of F so that the Neumann
// problem has a solution.
func makeCompatibleBoundary(F *FloatGrid) {
	width := F.Dx()
	height := F.Dy()

	sum := 0.0
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			sum += F.Get(x, y)
		}
	}
	for x := 1; x < width-1; x++ {
		sum += 0.5 * (F.Get(x, 0) + F.Get(x, height-1))
	}
	for y := 1; y < height-1; y++ {
		sum += 0.5 * (F.Get(0, y) + F.Get(width-1, y))
	}
	sum += 0.25 * (F.Get(0, 0) + F.Get(0, height-1) + F.Get(width-1, 0) + F.Get(width-1, height-1))

	add := -sum / float64(height+width-3)
	for x := 0; x < width; x++ {
		F.Set(x, 0, F.Get(x, 0)+add)
		F.Set(x, height-1, F.Get(x, height-1)+add)
	}
	for y := 1; y < height-1; y++ {
		F.Set(0, y, F.Get(0, y)+add)
		F.Set(width-1, y, F.Get(width-1, y)+add)
	}
}

// SolvePoisson solves laplace(U) = F with Neumann boundary conditions,
// where the boundary mirrors (U(-1) = U(1)). With adjustBound, F's
// boundary is first shifted so that an exact solution exists; without,
// the least-error solution comes back. U is only defined up to a
// constant, so it is shifted to have a max of 0. F is not modified.
func SolvePoisson(F FloatGrid, adjustBound bool) (FloatGrid, error) {
	width := F.Dx()
	height := F.Dy()
	if width < 2 || height < 2 {
		return FloatGrid{}, fmt.Errorf("SolvePoisson: need at least 2x2, got %dx%d", width, height)
	}

	if adjustBound {
		F = F.Copy()
		makeCompatibleBoundary(&F)
	}

	Ftr := toEigenSpace(F)

	// in the eigenvector space the solution is a division
	Utr := Ftr.NewFromThis()
	l1 := laplaceEigenvalues(height)
	l2 := laplaceEigenvalues(width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x == 0 && y == 0 {
				continue // any value will do, it only adds a constant
			}
			Utr.Set(x, y, Ftr.Get(x, y)/(l1[y]+l2[x]))
		}
	}

	U := fromEigenSpace(Utr)

	_, max := U.MinMax()
	floats.AddConst(-max, U.values)
	return U, nil
}
