package model

import (
	"math"

	"github.com/pkg/errors"
)

// Kind identifies the estimator family of an exported model.
type Kind string

const (
	KindLogistic Kind = "logistic"
	KindForest   Kind = "forest"

	leafNode = -1
)

// ErrShapeMismatch is returned when the input vector length differs from the
// number of features the model was trained on.
var ErrShapeMismatch = errors.New("feature vector shape mismatch")

// Document is the on-disk form of an exported classifier.
type Document struct {
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Kind         Kind      `json:"kind" yaml:"kind"`
	Features     int       `json:"n_features,omitempty" yaml:"n_features,omitempty"`
	Intercept    float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Trees        []Tree    `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// Tree is a binary decision tree in flat array form. Node i is a leaf when
// Left[i] is -1; otherwise samples with x[Feature[i]] <= Threshold[i] go left.
// Value[i] holds the class counts (negative, positive) at the node.
type Tree struct {
	Feature   []int       `json:"feature" yaml:"feature"`
	Threshold []float64   `json:"threshold" yaml:"threshold"`
	Left      []int       `json:"left" yaml:"left"`
	Right     []int       `json:"right" yaml:"right"`
	Value     [][]float64 `json:"value" yaml:"value"`
}

// Logistic is a logistic regression classifier.
type Logistic struct {
	intercept    float64
	coefficients []float64
}

// NewLogistic creates a logistic regression model.
func NewLogistic(intercept float64, coefficients []float64) *Logistic {
	c := make([]float64, len(coefficients))
	copy(c, coefficients)
	return &Logistic{intercept: intercept, coefficients: c}
}

func (m *Logistic) PositiveProbability(x []float64) (float64, error) {
	if len(x) != len(m.coefficients) {
		return 0, errors.Wrapf(ErrShapeMismatch, "expected %d features, got %d", len(m.coefficients), len(x))
	}
	z := m.intercept
	for i, w := range m.coefficients {
		z += w * x[i]
	}
	return sigmoid(z), nil
}

// Forest averages the positive-class leaf fractions of its trees.
type Forest struct {
	features int
	trees    []Tree
}

// NewForest validates the trees and creates a forest over n features.
func NewForest(n int, trees []Tree) (*Forest, error) {
	if n <= 0 {
		return nil, errors.New("forest requires n_features > 0")
	}
	if len(trees) == 0 {
		return nil, errors.New("forest requires at least one tree")
	}
	for i := range trees {
		if err := trees[i].validate(n); err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
	}
	return &Forest{features: n, trees: trees}, nil
}

func (m *Forest) PositiveProbability(x []float64) (float64, error) {
	if len(x) != m.features {
		return 0, errors.Wrapf(ErrShapeMismatch, "expected %d features, got %d", m.features, len(x))
	}
	var sum float64
	for i := range m.trees {
		sum += m.trees[i].positiveFraction(x)
	}
	return sum / float64(len(m.trees)), nil
}

func (t *Tree) validate(n int) error {
	size := len(t.Left)
	if size == 0 {
		return errors.New("empty tree")
	}
	if len(t.Right) != size || len(t.Feature) != size || len(t.Threshold) != size || len(t.Value) != size {
		return errors.New("node arrays differ in length")
	}
	for i := range size {
		if len(t.Value[i]) != 2 {
			return errors.Errorf("node %d: value must hold 2 class counts", i)
		}
		if t.Left[i] == leafNode {
			continue
		}
		if t.Left[i] <= i || t.Left[i] >= size || t.Right[i] <= i || t.Right[i] >= size {
			return errors.Errorf("node %d: child index out of range", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= n {
			return errors.Errorf("node %d: feature %d out of range", i, t.Feature[i])
		}
	}
	return nil
}

func (t *Tree) positiveFraction(x []float64) float64 {
	node := 0
	for t.Left[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	neg, pos := t.Value[node][0], t.Value[node][1]
	if neg+pos <= 0 {
		return 0
	}
	return pos / (neg + pos)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
