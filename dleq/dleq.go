// Package dleq implements a non-interactive discrete-log-equality proof:
// given four points (G, Gx, H, Hx), prove knowledge of x such that
// Gx = x*G and Hx = x*H, without revealing x. The Fiat-Shamir challenge is
// derived from SHA-256 over the compressed encoding of all six points
// involved (the four statement points plus the two prover commitments).
package dleq

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/lightninglabs/a2l/curve"
)

// ErrDiscreteLogNotEqual is returned by Verify when the proof does not
// attest log_G(Gx) = log_H(Hx).
var ErrDiscreteLogNotEqual = errors.New("dleq: discrete logs not equal")

// Proof is a DLEQ proof (s, c), both scalars mod q.
type Proof struct {
	S curve.Scalar
	C curve.Scalar
}

// Prove constructs a proof that the caller knows x with Gx = x*G, Hx = x*H.
// The caller is responsible for ensuring x is indeed the witness; Prove does
// not itself recompute Gx/Hx from x, since callers (adaptor.EncSign in
// particular) already have Gx/Hx on hand from other computations.
func Prove(g, gx, h, hx curve.Point, x curve.Scalar) (Proof, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return Proof{}, err
	}

	gr := curve.PointMul(g, r)
	hr := curve.PointMul(h, r)

	c := challenge(g, gx, h, hx, gr, hr)

	// s = r + c*x mod q
	s := r.Add(c.Mul(x))

	return Proof{S: s, C: c}, nil
}

// Verify checks proof against the statement (G, Gx, H, Hx).
func Verify(g, gx, h, hx curve.Point, proof Proof) error {
	// Gr = s*G - c*Gx
	sg := curve.PointMul(g, proof.S)
	cGx := curve.PointMul(gx, proof.C)
	gr, err := curve.PointAdd(sg, curve.PointNeg(cGx))
	if err != nil {
		return curve.ErrMalformedPoint
	}

	// Hr = s*H - c*Hx
	sh := curve.PointMul(h, proof.S)
	cHx := curve.PointMul(hx, proof.C)
	hr, err := curve.PointAdd(sh, curve.PointNeg(cHx))
	if err != nil {
		return curve.ErrMalformedPoint
	}

	recomputed := challenge(g, gx, h, hx, gr, hr)
	if !recomputed.Equal(proof.C) {
		return ErrDiscreteLogNotEqual
	}
	return nil
}

// challenge computes c = SHA256(G || Gx || H || Hx || Gr || Hr) mod q, over
// the compressed 33-byte encoding of each point.
func challenge(g, gx, h, hx, gr, hr curve.Point) curve.Scalar {
	hasher := sha256.New()
	for _, p := range []curve.Point{g, gx, h, hx, gr, hr} {
		b := p.ToBytes33()
		hasher.Write(b[:])
	}
	digest := hasher.Sum(nil)

	var n btcec.ModNScalar
	n.SetByteSlice(digest)

	// A challenge hashing to the zero scalar is cryptographically
	// negligible; treat it as "not equal" territory is unreachable by any
	// real input and is left unguarded like the reference implementation.
	s, _ := curve.ScalarFromModN(n)
	return s
}
