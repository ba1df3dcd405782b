package quant

import (
	"fmt"
	"math"
)

// Kind selects an entry of the scale table used for likelihood-like quantities.
type Kind uint8

const (
	DeltaLL     Kind = iota // log-likelihood differences, 1e-4 steps
	MVA                     // classifier outputs, 1e-6 steps
	Probability             // probabilities in [-1, 1], -1 marking "not computed"
	Chi2                    // non-negative chi2 and chi2/ndof values

	numKinds
)

var scaleTable = [numKinds]Scaled32{
	DeltaLL:     {Scale: 1.0e4, Min: math.MinInt32, Max: math.MaxInt32},
	MVA:         {Scale: 1.0e6, Min: math.MinInt32, Max: math.MaxInt32},
	Probability: {Scale: 1.0e4, Min: -10000, Max: 10000},
	Chi2:        {Scale: 1.0e2, Min: 0, Max: math.MaxInt32},
}

// Table returns the quantizer registered for kind.
// Unknown kinds fall back to the DeltaLL entry.
func Table(kind Kind) Scaled32 {
	if kind >= numKinds {
		return scaleTable[DeltaLL]
	}

	return scaleTable[kind]
}

func (k Kind) String() string {
	switch k {
	case DeltaLL:
		return "DeltaLL"
	case MVA:
		return "MVA"
	case Probability:
		return "Probability"
	case Chi2:
		return "Chi2"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}
