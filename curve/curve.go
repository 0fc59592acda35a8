// Package curve wraps the secp256k1 group and scalar field operations used
// throughout the tumbler protocol: keypairs, deterministic ECDSA, and the
// handful of scalar/point primitives the higher packages build on.
package curve

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Scalar is an integer modulo the secp256k1 group order q.
type Scalar struct {
	n btcec.ModNScalar
}

// Point is an affine secp256k1 curve point.
type Point struct {
	pub *btcec.PublicKey
}

var (
	// ErrMalformedScalar is returned when 32 bytes do not parse into a
	// valid non-zero scalar below the group order.
	ErrMalformedScalar = errors.New("curve: malformed scalar")

	// ErrMalformedPoint is returned when bytes do not parse into a point
	// on the curve, or parse to the point at infinity.
	ErrMalformedPoint = errors.New("curve: malformed point")
)

// generatorCompressed is the SEC1-compressed encoding of the secp256k1 base
// point G, used to initialise the package-wide constant without depending on
// exported curve-parameter accessors that vary across btcec releases.
var generatorCompressed = [33]byte{
	0x02,
	0x79, 0xbe, 0x66, 0x7e, 0xf9, 0xdc, 0xbb, 0xac,
	0x55, 0xa0, 0x62, 0x95, 0xce, 0x87, 0x0b, 0x07,
	0x02, 0x9b, 0xfc, 0xdb, 0x2d, 0xce, 0x28, 0xd9,
	0x59, 0xf2, 0x81, 0x5b, 0x16, 0xf8, 0x17, 0x98,
}

// G is the secp256k1 base point, initialised once at package load. It is
// never mutated.
var G Point

func init() {
	pub, err := btcec.ParsePubKey(generatorCompressed[:])
	if err != nil {
		panic(fmt.Sprintf("curve: parsing generator point: %v", err))
	}
	G = Point{pub: pub}
}

// RandomScalar draws a uniformly random non-zero scalar from a
// cryptographically secure source.
func RandomScalar() (Scalar, error) {
	for {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return Scalar{}, fmt.Errorf("curve: reading randomness: %w", err)
		}
		s, err := ScalarFromBytes32(buf)
		if errors.Is(err, ErrMalformedScalar) {
			continue
		}
		if err != nil {
			return Scalar{}, err
		}
		return s, nil
	}
}

// ScalarFromBytes32 parses a big-endian 32-byte scalar. It rejects values
// that are zero or that overflow the group order, matching the "no secret
// scalar is ever zero" invariant.
func ScalarFromBytes32(b [32]byte) (Scalar, error) {
	var n btcec.ModNScalar
	overflow := n.SetBytes(&b)
	if overflow != 0 {
		return Scalar{}, ErrMalformedScalar
	}
	if n.IsZero() {
		return Scalar{}, ErrMalformedScalar
	}
	return Scalar{n: n}, nil
}

// ScalarFromModN wraps an already-reduced btcec.ModNScalar. Used internally
// by packages that compute a scalar via curve arithmetic and already know it
// is well-formed; the zero check is still enforced.
func ScalarFromModN(n btcec.ModNScalar) (Scalar, error) {
	if n.IsZero() {
		return Scalar{}, ErrMalformedScalar
	}
	return Scalar{n: n}, nil
}

// ToBytes32 serialises the scalar as big-endian 32 bytes.
func (s Scalar) ToBytes32() [32]byte {
	var buf [32]byte
	n := s.n
	n.PutBytesUnchecked(buf[:])
	return buf
}

// ModN exposes the underlying reduced representation for packages that need
// to drop down to raw btcec arithmetic (e.g. DLEQ challenge folding).
func (s Scalar) ModN() btcec.ModNScalar {
	return s.n
}

// Add returns s + other mod q.
func (s Scalar) Add(other Scalar) Scalar {
	var n btcec.ModNScalar
	n.Set(&s.n).Add(&other.n)
	return Scalar{n: n}
}

// Mul returns s * other mod q.
func (s Scalar) Mul(other Scalar) Scalar {
	var n btcec.ModNScalar
	n.Mul2(&s.n, &other.n)
	return Scalar{n: n}
}

// Inv returns the multiplicative inverse of s mod q. A zero s has no
// inverse and yields zero; that cannot happen for a value that has passed
// ScalarFromBytes32 or RandomScalar.
func (s Scalar) Inv() Scalar {
	var n btcec.ModNScalar
	n.InverseValNonConst(&s.n)
	return Scalar{n: n}
}

// Neg returns -s mod q.
func (s Scalar) Neg() Scalar {
	var n btcec.ModNScalar
	n.Set(&s.n).Negate()
	return Scalar{n: n}
}

// IsZero reports whether s is the zero scalar. Useful for checking
// derived values (e.g. s_hat) before inversion.
func (s Scalar) IsZero() bool {
	return s.n.IsZero()
}

// Equal reports whether s and other represent the same residue mod q.
func (s Scalar) Equal(other Scalar) bool {
	return s.n.Equals(&other.n)
}

// PointMul returns k*P.
func PointMul(p Point, k Scalar) Point {
	var jp, jResult btcec.JacobianPoint
	p.pub.AsJacobian(&jp)

	kCopy := k.n
	btcec.ScalarMultNonConst(&kCopy, &jp, &jResult)
	jResult.ToAffine()

	return Point{pub: btcec.NewPublicKey(&jResult.X, &jResult.Y)}
}

// ScalarBaseMul returns k*G.
func ScalarBaseMul(k Scalar) Point {
	kCopy := k.n
	var jResult btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&kCopy, &jResult)
	jResult.ToAffine()
	return Point{pub: btcec.NewPublicKey(&jResult.X, &jResult.Y)}
}

// PointAdd returns P+Q.
func PointAdd(p, q Point) (Point, error) {
	var jp, jq, jr btcec.JacobianPoint
	p.pub.AsJacobian(&jp)
	q.pub.AsJacobian(&jq)
	btcec.AddNonConst(&jp, &jq, &jr)
	if (jr.X.IsZero() && jr.Y.IsZero()) || jr.Z.IsZero() {
		return Point{}, ErrMalformedPoint
	}
	jr.ToAffine()
	return Point{pub: btcec.NewPublicKey(&jr.X, &jr.Y)}, nil
}

// PointNeg returns -P.
func PointNeg(p Point) Point {
	x, y := p.pub.X(), p.pub.Y()
	negY := new(btcec.FieldVal).NegateVal(y, 1).Normalize()
	return Point{pub: btcec.NewPublicKey(x, negY)}
}

// PointFromBytes33 parses a 33-byte SEC1-compressed point, rejecting the
// point at infinity and anything not on the curve.
func PointFromBytes33(b [33]byte) (Point, error) {
	pub, err := btcec.ParsePubKey(b[:])
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}
	return Point{pub: pub}, nil
}

// ToBytes33 serialises the point in SEC1-compressed form.
func (p Point) ToBytes33() [33]byte {
	var out [33]byte
	copy(out[:], p.pub.SerializeCompressed())
	return out
}

// XCoordScalar returns the affine x-coordinate reduced modulo the group
// order q, as used for a signature's r component.
func (p Point) XCoordScalar() Scalar {
	x := p.pub.X()
	var buf [32]byte
	x.PutBytesUnchecked(buf[:])
	var n btcec.ModNScalar
	n.SetBytes(&buf)
	return Scalar{n: n}
}

// Equal reports whether p and other are the same affine point.
func (p Point) Equal(other Point) bool {
	return p.pub.IsEqual(other.pub)
}

// PubKey exposes the underlying btcec public key, needed by txbuilder and
// adaptor to interoperate with txscript/ecdsa.
func (p Point) PubKey() *btcec.PublicKey {
	return p.pub
}

// KeyPair is a secp256k1 secret/public keypair, pk = sk*G.
type KeyPair struct {
	SK Scalar
	PK Point
}

// GenerateKeyPair draws a fresh random keypair.
func GenerateKeyPair() (KeyPair, error) {
	sk, err := RandomScalar()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{SK: sk, PK: ScalarBaseMul(sk)}, nil
}

// KeyPairFromScalar derives the keypair for an already-known secret scalar.
func KeyPairFromScalar(sk Scalar) KeyPair {
	return KeyPair{SK: sk, PK: ScalarBaseMul(sk)}
}

// privKey converts sk into a *btcec.PrivateKey for use with the ecdsa
// sub-package's deterministic signer.
func (kp KeyPair) privKey() *btcec.PrivateKey {
	sk := kp.SK.n
	var buf [32]byte
	sk.PutBytesUnchecked(buf[:])
	priv, _ := btcec.PrivKeyFromBytes(buf[:])
	return priv
}

// Signature is a secp256k1 ECDSA signature (r, s), with r the x-coordinate
// of the nonce point reduced mod q and s canonicalised to low-s.
type Signature struct {
	R Scalar
	S Scalar
}

// Sign produces a deterministic, low-s ECDSA signature over digest, which
// must already be a 32-byte message hash (the BIP-143 sighash in this
// module's usage).
func Sign(kp KeyPair, digest [32]byte) Signature {
	sig := ecdsa.Sign(kp.privKey(), digest[:])
	r, s := sig.R(), sig.S()
	return Signature{R: Scalar{n: r}, S: Scalar{n: s}}
}

// Verify checks sig against digest under pk.
func Verify(pk Point, digest [32]byte, sig Signature) bool {
	rCopy, sCopy := sig.R.n, sig.S.n
	ecSig := ecdsa.NewSignature(&rCopy, &sCopy)
	return ecSig.Verify(digest[:], pk.pub)
}
