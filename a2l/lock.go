package a2l

import (
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
)

// Lock is the puzzle handed from the receiver leg to the solver leg: a
// re-blinded puzzle point and the matching re-blinded HSM-CL ciphertext.
// The sender never learns the receiver's blinding factor beta directly; it
// only ever sees (A', c_alpha').
type Lock struct {
	APrime      curve.Point
	CAlphaPrime hsmcl.Ciphertext
}
