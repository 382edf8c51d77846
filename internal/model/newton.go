package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxHalvings bounds the backtracking line search of a Newton step.
const maxHalvings = 30

// sigmoid is the logistic function, evaluated without overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// linear returns w·x + b where theta holds the weights followed by the intercept.
func linear(theta, x []float64) float64 {
	p := len(x)
	z := theta[p]
	for j, v := range x {
		z += theta[j] * v
	}
	return z
}

// objective is the L2-penalized negative log-likelihood. The intercept is
// not penalized.
func objective(theta []float64, x [][]float64, y []int, c float64) float64 {
	p := len(theta) - 1
	var loss float64
	for i, row := range x {
		z := linear(theta, row)
		loss += softplus(z) - float64(y[i])*z
	}
	var penalty float64
	for j := 0; j < p; j++ {
		penalty += theta[j] * theta[j]
	}
	return loss + penalty/(2*c)
}

// newtonStep returns the gradient and Hessian of the objective at theta.
func newtonStep(theta []float64, x [][]float64, y []int, c float64) (*mat.VecDense, *mat.SymDense) {
	d := len(theta)
	p := d - 1
	grad := mat.NewVecDense(d, nil)
	hess := mat.NewSymDense(d, nil)

	xt := mat.NewVecDense(d, nil)
	for i, row := range x {
		for j, v := range row {
			xt.SetVec(j, v)
		}
		xt.SetVec(p, 1)
		prob := sigmoid(linear(theta, row))
		grad.AddScaledVec(grad, prob-float64(y[i]), xt)
		hess.SymRankOne(hess, prob*(1-prob), xt)
	}
	for j := 0; j < p; j++ {
		grad.SetVec(j, grad.AtVec(j)+theta[j]/c)
		hess.SetSym(j, j, hess.At(j, j)+1/c)
	}
	hess.SetSym(p, p, hess.At(p, p)+1e-10)
	return grad, hess
}

// solve returns v with hess·v = grad. hess must be positive definite.
func solve(hess *mat.SymDense, grad *mat.VecDense) (*mat.VecDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return nil, errors.New("hessian is not positive definite")
	}
	var v mat.VecDense
	if err := chol.SolveVecTo(&v, grad); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return &v, nil
}

// fitNewton minimizes the objective from a zero start. It returns the
// parameters, the number of iterations run, and whether the last step fell
// below tol.
func fitNewton(x [][]float64, y []int, c float64, maxIter int, tol float64) ([]float64, int, bool, error) {
	d := len(x[0]) + 1
	theta := make([]float64, d)
	loss := objective(theta, x, y, c)

	for iter := 1; iter <= maxIter; iter++ {
		grad, hess := newtonStep(theta, x, y, c)
		step, err := solve(hess, grad)
		if err != nil {
			return nil, iter, false, err
		}

		t := 1.0
		next := make([]float64, d)
		var nextLoss float64
		for h := 0; ; h++ {
			for j := range theta {
				next[j] = theta[j] - t*step.AtVec(j)
			}
			nextLoss = objective(next, x, y, c)
			if nextLoss <= loss || h == maxHalvings {
				break
			}
			t /= 2
		}

		var maxStep float64
		for j := range theta {
			maxStep = math.Max(maxStep, math.Abs(next[j]-theta[j]))
		}
		theta = next
		loss = nextLoss

		if maxStep < tol {
			return theta, iter, true, nil
		}
	}
	return theta, maxIter, false, nil
}
