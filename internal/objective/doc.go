// Package objective scores compensator candidates against a performance
// specification.
//
// The cost of a candidate is the sum of three terms sharing one penalty
// weight W:
//
//	phase margin      W·((target-PM)/target)²      below target
//	                  -W·0.01·min(PM-target, cap)  otherwise
//	bandwidth         W·((min-ωp)/min)²            below the bound
//	                  -W·0.01·min(PM-target, cap)  otherwise
//	steady-state err  W·((ess-max)/max)²           above the bound
//	                  -W·0.1·(max-ess)/max         otherwise
//
// Structurally invalid candidates and numerical faults both cost MaxPenalty
// but are reported with distinct statuses.
package objective
