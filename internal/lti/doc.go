// Package lti models single-input single-output linear time-invariant systems
// as ratios of real polynomials in the Laplace variable s.
//
// Coefficients are ordered highest degree first, so {1, 2, 3} is s²+2s+3:
//
//   - [TransferFunction]: immutable numerator/denominator pair
//   - [TransferFunction.Mul]: series (cascade) connection
//   - [TransferFunction.Feedback]: unity negative feedback L/(1+L)
//   - [TransferFunction.FreqResponse]: complex response H(jω)
//   - [TransferFunction.StateSpace]: controllable canonical realization
//
// # Example
//
//	plant, err := lti.New([]float64{1}, []float64{1, 1})
//	if err != nil {
//	    return err // lti.ErrInvalidModel
//	}
//	h := plant.FreqResponse(1.0) // 0.5 - 0.5i
//
// Evaluation never panics on singular points: a zero denominator yields
// Inf or NaN components which callers are expected to tolerate.
package lti
