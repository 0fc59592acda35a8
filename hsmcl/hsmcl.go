// Package hsmcl implements the linearly homomorphic encryption capability
// the tumbler protocol calls HSM-CL: keygen, randomised encrypt-with-proof,
// proof verification, scalar-multiply, and decrypt, over plaintexts in the
// secp256k1 scalar field.
//
// A real HSM-CL scheme encrypts into a class group of unknown order. No such
// library exists anywhere in this module's dependency pool, so this package
// binds the same algebraic contract to a Paillier cryptosystem instead: like
// a class group, Paillier's Z[N^2]* has an order hidden by a secret
// factorization, and it is additively homomorphic in the plaintext and
// scalar-multiplication-homomorphic by a public integer, which is exactly
// what Encrypt/Multiply/Decrypt need. See DESIGN.md for the full rationale.
package hsmcl

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/lightninglabs/a2l/curve"
)

// StildeBits names the original HSM-CL security parameter. It is a label
// only: it is not folded into the public setup tag or any proof challenge,
// and it does not size this package's own group, which is fixed
// independently by PaillierModulusBits.
const StildeBits = 1348

// PaillierModulusBits is the bit length of the Paillier modulus N used by
// this stand-in. It is sized independently of StildeBits because this
// group's order is hidden by factorization rather than by a class-group
// discriminant.
const PaillierModulusBits = 2048

// ErrInvalidProof is returned by Verify when a ciphertext/proof pair does
// not attest to encrypting the scalar behind the claimed public point.
var ErrInvalidProof = errors.New("hsmcl: invalid encryption proof")

// PublicKey bundles a Paillier public key together with the public setup
// tag that binds every proof produced under it.
type PublicKey struct {
	n           *big.Int // Paillier modulus N = p*q
	nSquared    *big.Int
	g           *big.Int // Paillier generator, fixed to N+1
	publicSetup []byte
}

// KeyPair holds the Paillier private factors alongside the public key.
type KeyPair struct {
	Pub    PublicKey
	lambda *big.Int // lcm(p-1, q-1)
	mu     *big.Int // (L(g^lambda mod N^2))^-1 mod N
}

// Ciphertext is an opaque Paillier ciphertext, c = g^m * r^N mod N^2.
type Ciphertext struct {
	c *big.Int
}

// Proof attests that a Ciphertext encrypts the secp256k1 scalar behind a
// claimed public point X = x*G, using a Fiat-Shamir sigma protocol that
// binds a Paillier-side commitment and a curve-side commitment under one
// challenge.
type Proof struct {
	a  *big.Int    // Paillier-side commitment ciphertext
	k  curve.Point // curve-side commitment point
	z1 *big.Int    // response for the plaintext witness
	z2 *big.Int    // response for the encryption randomness
}

// Keygen produces a fresh keypair tagged with publicSetup. The tag is
// hashed into every proof's Fiat-Shamir challenge, so a (ciphertext, proof)
// pair produced under one tumbler's setup does not verify against another's
// public key even if the Paillier moduli happened to collide.
func Keygen(publicSetup []byte) (KeyPair, error) {
	p, err := rand.Prime(rand.Reader, PaillierModulusBits/2)
	if err != nil {
		return KeyPair{}, fmt.Errorf("hsmcl: generating prime p: %w", err)
	}
	q, err := rand.Prime(rand.Reader, PaillierModulusBits/2)
	if err != nil {
		return KeyPair{}, fmt.Errorf("hsmcl: generating prime q: %w", err)
	}

	n := new(big.Int).Mul(p, q)
	nSquared := new(big.Int).Mul(n, n)

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	qMinus1 := new(big.Int).Sub(q, big.NewInt(1))
	gcd := new(big.Int).GCD(nil, nil, pMinus1, qMinus1)
	lambda := new(big.Int).Div(new(big.Int).Mul(pMinus1, qMinus1), gcd)

	g := new(big.Int).Add(n, big.NewInt(1))

	gLambda := new(big.Int).Exp(g, lambda, nSquared)
	l := lFunc(gLambda, n)
	mu := new(big.Int).ModInverse(l, n)
	if mu == nil {
		return KeyPair{}, errors.New("hsmcl: degenerate keypair, retry keygen")
	}

	tag := append([]byte(nil), publicSetup...)
	pub := PublicKey{n: n, nSquared: nSquared, g: g, publicSetup: tag}

	return KeyPair{Pub: pub, lambda: lambda, mu: mu}, nil
}

// lFunc computes L(x) = (x-1)/N, the standard Paillier decryption helper.
func lFunc(x, n *big.Int) *big.Int {
	num := new(big.Int).Sub(x, big.NewInt(1))
	return new(big.Int).Div(num, n)
}

// curveOrder is the secp256k1 group order q, used to bound plaintexts.
var curveOrder = btcec.S256().N

// Encrypt randomly encrypts the secret scalar of witness under pk, producing
// a proof that the ciphertext encrypts exactly that scalar and that the
// scalar is the discrete log of witness.PK.
func Encrypt(pk PublicKey, witness curve.KeyPair) (Ciphertext, Proof, error) {
	m := new(big.Int).SetBytes(scalarBytes32(witness.SK))

	r, err := randFieldElement(pk.n)
	if err != nil {
		return Ciphertext{}, Proof{}, err
	}
	c := encryptWithRandomness(pk, m, r)

	// Sigma protocol: prove knowledge of (m, r) such that c = g^m r^N
	// mod N^2 and witness.PK = m*G, under one combined challenge binding
	// a Paillier-side commitment `a` and a curve-side commitment `K`.
	k, err := randFieldElement(pk.n)
	if err != nil {
		return Ciphertext{}, Proof{}, err
	}
	s, err := randFieldElement(pk.n)
	if err != nil {
		return Ciphertext{}, Proof{}, err
	}

	a := encryptWithRandomness(pk, k, s)

	kScalar, err := scalarFromBigInt(new(big.Int).Mod(k, curveOrder))
	if err != nil {
		// k mod q landed on zero; redraw from scratch.
		return Encrypt(pk, witness)
	}
	commitmentPoint := curve.ScalarBaseMul(kScalar)

	e := proofChallenge(pk, c.c, a.c, witness.PK, commitmentPoint)

	// z1 = k + e*m (over the integers), z2 = s * r^e mod N.
	z1 := new(big.Int).Add(k, new(big.Int).Mul(e, m))
	z2 := new(big.Int).Mod(
		new(big.Int).Mul(s, new(big.Int).Exp(r, e, pk.n)),
		pk.n,
	)

	return c, Proof{a: a.c, k: commitmentPoint, z1: z1, z2: z2}, nil
}

// Verify checks that ciphertext encrypts the scalar behind public point X
// under pk, per proof.
func Verify(pk PublicKey, proof Proof, ciphertext Ciphertext, x curve.Point) error {
	e := proofChallenge(pk, ciphertext.c, proof.a, x, proof.k)

	// Paillier-side check: g^z1 * z2^N == a * c^e (mod N^2).
	lhs := encryptWithRandomness(pk, proof.z1, proof.z2)
	rhs := new(big.Int).Mod(
		new(big.Int).Mul(proof.a, new(big.Int).Exp(ciphertext.c, e, pk.nSquared)),
		pk.nSquared,
	)
	if lhs.c.Cmp(rhs) != 0 {
		return ErrInvalidProof
	}

	// Curve-side check: (z1 mod q)*G == K + e*X.
	z1Scalar, err := scalarFromBigInt(new(big.Int).Mod(proof.z1, curveOrder))
	if err != nil {
		return ErrInvalidProof
	}
	lhsPoint := curve.ScalarBaseMul(z1Scalar)

	eScalar, err := scalarFromBigInt(new(big.Int).Mod(e, curveOrder))
	if err != nil {
		return ErrInvalidProof
	}
	eX := curve.PointMul(x, eScalar)
	rhsPoint, err := curve.PointAdd(proof.k, eX)
	if err != nil {
		return ErrInvalidProof
	}

	if !lhsPoint.Equal(rhsPoint) {
		return ErrInvalidProof
	}

	return nil
}

// Multiply returns an encryption of (plaintext * k mod q), exploiting
// Paillier's multiplicative-by-scalar homomorphism. Per the algebraic
// contract, the result carries no proof: any proof bound to the original
// ciphertext does not apply to the rescaled one.
func Multiply(pk PublicKey, ciphertext Ciphertext, k curve.Scalar) Ciphertext {
	kBig := new(big.Int).SetBytes(scalarBytes32(k))
	return Ciphertext{c: new(big.Int).Exp(ciphertext.c, kBig, pk.nSquared)}
}

// Decrypt recovers the plaintext scalar, reduced mod q and embedded
// big-endian into 32 bytes.
func (kp KeyPair) Decrypt(ciphertext Ciphertext) (curve.Scalar, error) {
	cLambda := new(big.Int).Exp(ciphertext.c, kp.lambda, kp.Pub.nSquared)
	l := lFunc(cLambda, kp.Pub.n)
	m := new(big.Int).Mod(new(big.Int).Mul(l, kp.mu), kp.Pub.n)

	mModQ := new(big.Int).Mod(m, curveOrder)
	return scalarFromBigInt(mModQ)
}

func encryptWithRandomness(pk PublicKey, m, r *big.Int) Ciphertext {
	gm := new(big.Int).Exp(pk.g, m, pk.nSquared)
	rn := new(big.Int).Exp(r, pk.n, pk.nSquared)
	return Ciphertext{c: new(big.Int).Mod(new(big.Int).Mul(gm, rn), pk.nSquared)}
}

// randFieldElement draws a uniformly random element of [1, n).
func randFieldElement(n *big.Int) (*big.Int, error) {
	for {
		v, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, fmt.Errorf("hsmcl: drawing randomness: %w", err)
		}
		if v.Sign() != 0 {
			return v, nil
		}
	}
}

// proofChallenge derives the Fiat-Shamir challenge binding the public setup
// tag, the ciphertext, the sigma-protocol commitment, and the claimed public
// point together. It is used both while proving (with a fresh commitment
// point) and while verifying (with the recomputed one).
func proofChallenge(pk PublicKey, c, a *big.Int, x, commitment curve.Point) *big.Int {
	hasher := sha256.New()
	hasher.Write(pk.publicSetup)
	hasher.Write(pk.n.Bytes())
	hasher.Write(c.Bytes())
	hasher.Write(a.Bytes())
	xb := x.ToBytes33()
	hasher.Write(xb[:])
	cb := commitment.ToBytes33()
	hasher.Write(cb[:])

	digest := hasher.Sum(nil)
	return new(big.Int).SetBytes(digest)
}

func scalarBytes32(s curve.Scalar) []byte {
	b := s.ToBytes32()
	return b[:]
}

func scalarFromBigInt(v *big.Int) (curve.Scalar, error) {
	return curve.ScalarFromBytes32(leftPadTo32(v.Bytes()))
}

func leftPadTo32(b []byte) [32]byte {
	var out [32]byte
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}
