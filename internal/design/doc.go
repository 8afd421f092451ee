// Package design runs one compensator synthesis: it searches the
// (K, z, p) box for the candidate minimizing the objective, then derives the
// final compensator, the open and closed loops and their response datasets.
//
// # Thread Safety
//
// A Session may be shared between goroutines. Optimize calls are serialized;
// Bode, Nyquist and Step read the last completed result and fail with
// ErrNotComputed before one exists.
package design
