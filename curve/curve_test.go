package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarFromBytes32RejectsZero(t *testing.T) {
	var zero [32]byte
	_, err := ScalarFromBytes32(zero)
	require.ErrorIs(t, err, ErrMalformedScalar)
}

func TestScalarArithmetic(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	require.True(t, a.Add(b).Equal(b.Add(a)), "addition should commute")

	// a * a^-1 == 1, checked via G rather than a hardcoded scalar literal.
	require.True(t, ScalarBaseMul(a.Mul(a.Inv())).Equal(G))
}

func TestPointMulAndAdd(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	aG := ScalarBaseMul(a)
	bG := ScalarBaseMul(b)

	sum, err := PointAdd(aG, bG)
	require.NoError(t, err)

	abG := ScalarBaseMul(a.Add(b))
	require.True(t, sum.Equal(abG), "(a+b)*G should equal a*G + b*G")
}

func TestPointMulDistributesOverScalarMul(t *testing.T) {
	k, err := RandomScalar()
	require.NoError(t, err)
	x, err := RandomScalar()
	require.NoError(t, err)

	xG := ScalarBaseMul(x)
	lhs := PointMul(xG, k)
	rhs := ScalarBaseMul(k.Mul(x))
	require.True(t, lhs.Equal(rhs))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	var digest [32]byte
	digest[0] = 0x42

	sig := Sign(kp, digest)
	require.True(t, Verify(kp.PK, digest, sig))

	otherKp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, Verify(otherKp.PK, digest, sig))
}

func TestPointFromBytes33RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	b := kp.PK.ToBytes33()
	parsed, err := PointFromBytes33(b)
	require.NoError(t, err)
	require.True(t, parsed.Equal(kp.PK))
}
