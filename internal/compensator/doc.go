// Package compensator builds first-order lead/lag networks
//
//	C(s) = K·(s+z)/(s+p)
//
// from a [Candidate] and converts the result to the time-constant form
// K·(Ts+1)/(αTs+1) reported to users as a [Compensator].
package compensator
