package model

import (
	"fmt"
	"math"
	"math/rand"
)

// Split is a train/test partition of a feature matrix. The index slices
// refer to rows of the original matrix.
type Split struct {
	TrainX     [][]float64
	TrainY     []int
	TestX      [][]float64
	TestY      []int
	TrainIndex []int
	TestIndex  []int
}

// SplitData shuffles rows with a seeded source and holds out
// ceil(len(x)*testSize) of them for testing.
func SplitData(x [][]float64, y []int, testSize float64, seed int64) (*Split, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("feature rows (%d) and labels (%d) differ", n, len(y))
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, fmt.Errorf("cannot split %d rows with test size %v", n, testSize)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	s := &Split{
		TestIndex:  perm[:nTest],
		TrainIndex: perm[nTest:],
	}
	for _, i := range s.TrainIndex {
		s.TrainX = append(s.TrainX, x[i])
		s.TrainY = append(s.TrainY, y[i])
	}
	for _, i := range s.TestIndex {
		s.TestX = append(s.TestX, x[i])
		s.TestY = append(s.TestY, y[i])
	}
	return s, nil
}
