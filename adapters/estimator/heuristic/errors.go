package heuristic

import "errors"

var (
	errSingularFit        = errors.New("pre-period design matrix is singular")
	errNonFiniteInput     = errors.New("non-finite value in observed series")
	errDegenerateBaseline = errors.New("counterfactual baseline is not strictly positive")
)
