package experiments

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

const testSamples = 1000

// linearTeacher draws Gaussian inputs and labels them with a fixed random
// linear map plus Gaussian noise.
type linearTeacher struct {
	weights *mat.VecDense
	noise   float64
	normal  distuv.Normal
}

func newLinearTeacher(features int, noise float64, src rand.Source) *linearTeacher {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	w := mat.NewVecDense(features, nil)
	scale := 1 / math.Sqrt(float64(features))
	for i := 0; i < features; i++ {
		w.SetVec(i, normal.Rand()*scale)
	}
	return &linearTeacher{weights: w, noise: noise, normal: normal}
}

func (t *linearTeacher) generate(n int) (*mat.Dense, *mat.VecDense) {
	d := t.weights.Len()
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, t.normal.Rand())
		}
	}
	y := mat.NewVecDense(n, nil)
	y.MulVec(x, t.weights)
	for i := 0; i < n; i++ {
		y.SetVec(i, y.AtVec(i)+t.noise*t.normal.Rand())
	}
	return x, y
}

// ridgeStudent fits w minimising |Xw - y|² + alpha |w|².
type ridgeStudent struct {
	alpha   float64
	weights *mat.VecDense
}

func (s *ridgeStudent) fit(x *mat.Dense, y *mat.VecDense) error {
	_, d := x.Dims()
	var gram mat.SymDense
	gram.SymOuterK(1, x.T())
	for i := 0; i < d; i++ {
		gram.SetSym(i, i, gram.At(i, i)+s.alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return fmt.Errorf("ridge system is not positive definite (alpha=%g)", s.alpha)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)
	s.weights = mat.NewVecDense(d, nil)
	return chol.SolveVecTo(s.weights, &xty)
}

// score returns the coefficient of determination of the fitted model on x, y.
func (s *ridgeStudent) score(x *mat.Dense, y *mat.VecDense) float64 {
	n, _ := x.Dims()
	pred := mat.NewVecDense(n, nil)
	pred.MulVec(x, s.weights)
	return stat.RSquaredFrom(pred.RawVector().Data, y.RawVector().Data, nil)
}

// TeacherStudent fits a ridge regression student to data from a noisy linear
// teacher and reports train and test R² scores.
//
// Parameters: n_samples (required), n_features (10), alpha (1.0),
// noise (0.1), seed (0).
func TeacherStudent(params *record.Record) (*record.Record, error) {
	tic := time.Now()

	n, err := params.Int("n_samples")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("n_samples must be positive, got %d", n)
	}
	features, err := intParam(params, "n_features", 10)
	if err != nil {
		return nil, err
	}
	if features < 1 {
		return nil, fmt.Errorf("n_features must be positive, got %d", features)
	}
	alpha, err := floatParam(params, "alpha", 1.0)
	if err != nil {
		return nil, err
	}
	noise, err := floatParam(params, "noise", 0.1)
	if err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}

	teacher := newLinearTeacher(features, noise, rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	xTrain, yTrain := teacher.generate(n)
	student := &ridgeStudent{alpha: alpha}
	if err := student.fit(xTrain, yTrain); err != nil {
		return nil, err
	}
	xTest, yTest := teacher.generate(testSamples)

	return record.Of(
		"score_train", student.score(xTrain, yTrain),
		"score_test", student.score(xTest, yTest),
		"elapsed_time", time.Since(tic).Seconds(),
	), nil
}

// GaussianMean estimates the mean of N(mu, sigma²) from n_samples draws.
//
// Parameters: n_samples (required), mu (0), sigma (1), seed (0).
func GaussianMean(params *record.Record) (*record.Record, error) {
	n, err := params.Int("n_samples")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("n_samples must be positive, got %d", n)
	}
	mu, err := floatParam(params, "mu", 0)
	if err != nil {
		return nil, err
	}
	sigma, err := floatParam(params, "sigma", 1)
	if err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %g", sigma)
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}

	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rand.NewPCG(uint64(seed), 1)}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = dist.Rand()
	}
	estimate := stat.Mean(samples, nil)
	diff := estimate - mu
	return record.Of(
		"estimate", estimate,
		"abs_error", math.Abs(diff),
		"sq_error", diff*diff,
	), nil
}
