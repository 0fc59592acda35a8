// Package adaptor implements ECDSA adaptor signatures: a signature
// pre-computed under one party's secret key x and locked to another
// party's public point Y, such that completing (decrypting) the signature
// with the secret y behind Y is the only way to obtain a valid ECDSA
// signature, and doing so on-chain leaks y to anyone watching.
package adaptor

import (
	"errors"

	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/dleq"
)

// ErrInvalidProof is returned by EncVerify when the embedded DLEQ proof
// does not hold.
var ErrInvalidProof = errors.New("adaptor: invalid proof")

// ErrInvalidSignature is returned by EncVerify when the proof holds but the
// encrypted-signature equation itself does not.
var ErrInvalidSignature = errors.New("adaptor: invalid encrypted signature")

// ErrRecoveryMismatch is returned by Recover when neither sign of the
// recovered candidate matches the claimed public key.
var ErrRecoveryMismatch = errors.New("adaptor: recovery key mismatch")

// EncryptedSignature is a pre-signature locked to the point Y: R = r*Y,
// RHat = r*G, SHat = r^-1 * (m + x*R.x) mod q, plus a DLEQ proof that R and
// RHat share the same discrete log r relative to Y and G respectively.
type EncryptedSignature struct {
	R     curve.Point
	RHat  curve.Point
	SHat  curve.Scalar
	Proof dleq.Proof
}

// EncSign produces an EncryptedSignature over digest under xKp, locked to Y.
func EncSign(xKp curve.KeyPair, y curve.Point, digest [32]byte) (EncryptedSignature, error) {
	r, err := curve.RandomScalar()
	if err != nil {
		return EncryptedSignature{}, err
	}

	rHat := curve.ScalarBaseMul(r)
	rPoint := curve.PointMul(y, r)

	proof, err := dleq.Prove(curve.G, rHat, y, rPoint, r)
	if err != nil {
		return EncryptedSignature{}, err
	}

	m, err := curve.ScalarFromBytes32(digest)
	if err != nil {
		return EncryptedSignature{}, err
	}

	// s_hat = r^-1 * (m + x*R.x) mod q
	rX := rPoint.XCoordScalar()
	inner := m.Add(xKp.SK.Mul(rX))
	sHat := r.Inv().Mul(inner)

	return EncryptedSignature{R: rPoint, RHat: rHat, SHat: sHat, Proof: proof}, nil
}

// EncVerify checks an EncryptedSignature against the signer's public key X,
// the lock point Y, and the digest it was meant to cover.
func EncVerify(x, y curve.Point, digest [32]byte, encsig EncryptedSignature) error {
	if err := dleq.Verify(curve.G, encsig.RHat, y, encsig.R, encsig.Proof); err != nil {
		return ErrInvalidProof
	}

	if encsig.SHat.IsZero() {
		return ErrInvalidSignature
	}

	m, err := curve.ScalarFromBytes32(digest)
	if err != nil {
		return ErrInvalidSignature
	}

	sHatInv := encsig.SHat.Inv()
	rX := encsig.R.XCoordScalar()

	u0 := curve.ScalarBaseMul(m.Mul(sHatInv))
	u1 := curve.PointMul(x, rX.Mul(sHatInv))

	sum, err := curve.PointAdd(u0, u1)
	if err != nil {
		return ErrInvalidSignature
	}

	if !sum.Equal(encsig.RHat) {
		return ErrInvalidSignature
	}
	return nil
}

// DecSig decrypts encsig into a completed ECDSA signature, using the secret
// yKp behind the lock point Y the encrypted signature was produced against.
func DecSig(yKp curve.KeyPair, encsig EncryptedSignature) (curve.Signature, error) {
	s := encsig.SHat.Mul(yKp.SK.Inv())

	sig := curve.Signature{R: encsig.R.XCoordScalar(), S: s}
	return canonicalizeLowS(sig), nil
}

// canonicalizeLowS negates s if it is over half the group order, matching
// the low-s normalisation every party in this protocol enforces on the
// signatures it publishes.
func canonicalizeLowS(sig curve.Signature) curve.Signature {
	// curve.Scalar hides ModNScalar's IsOverHalfOrder test; round-trip
	// through ModN to reach it directly rather than widen curve's public
	// surface for a single internal convenience check.
	n := sig.S.ModN()
	if n.IsOverHalfOrder() {
		sig.S = sig.S.Neg()
	}
	return sig
}

// RecoveryKey carries what's needed to recover the decrypting secret y once
// a completed signature s is observed on-chain: (Y, s_hat).
type RecoveryKey struct {
	Y    curve.Point
	SHat curve.Scalar
}

// RecKey extracts the RecoveryKey embedded in an EncryptedSignature.
func RecKey(y curve.Point, encsig EncryptedSignature) RecoveryKey {
	return RecoveryKey{Y: y, SHat: encsig.SHat}
}

// Recover derives the keypair behind reckey.Y from a completed signature,
// checking both sign candidates as described in the protocol's adaptor
// construction.
func Recover(sig curve.Signature, reckey RecoveryKey) (curve.KeyPair, error) {
	if sig.S.IsZero() {
		return curve.KeyPair{}, ErrRecoveryMismatch
	}

	yBar := reckey.SHat.Mul(sig.S.Inv())

	candidate := curve.ScalarBaseMul(yBar)
	if candidate.Equal(reckey.Y) {
		return curve.KeyPairFromScalar(yBar), nil
	}

	negYBar := yBar.Neg()
	negCandidate := curve.ScalarBaseMul(negYBar)
	if negCandidate.Equal(reckey.Y) {
		return curve.KeyPairFromScalar(negYBar), nil
	}

	return curve.KeyPair{}, ErrRecoveryMismatch
}
