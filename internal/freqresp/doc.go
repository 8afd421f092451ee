// Package freqresp samples transfer functions along logarithmic frequency
// sweeps and derives stability margins from the samples.
//
//   - [LogSpace]: logarithmically spaced sweep
//   - [Bode]: magnitude (dB) and unwrapped phase (degrees)
//   - [Nyquist]: real and imaginary parts of the response
//   - [ComputeMargins]: gain/phase margins and crossover frequencies
//
// Missing crossings are reported losslessly: the margin is +Inf and the
// crossover frequency is NaN.
package freqresp
