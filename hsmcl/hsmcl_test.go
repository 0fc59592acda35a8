package hsmcl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/a2l/curve"
)

func TestEncryptVerifyDecryptRoundTrip(t *testing.T) {
	kp, err := Keygen([]byte("test-setup"))
	require.NoError(t, err)

	witness, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, proof, err := Encrypt(kp.Pub, witness)
	require.NoError(t, err)

	require.NoError(t, Verify(kp.Pub, proof, ciphertext, witness.PK))

	decrypted, err := kp.Decrypt(ciphertext)
	require.NoError(t, err)
	require.True(t, decrypted.Equal(witness.SK))
}

func TestVerifyRejectsMismatchedPoint(t *testing.T) {
	kp, err := Keygen([]byte("test-setup"))
	require.NoError(t, err)

	witness, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	other, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, proof, err := Encrypt(kp.Pub, witness)
	require.NoError(t, err)

	err = Verify(kp.Pub, proof, ciphertext, other.PK)
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestMultiplyScalesPlaintext(t *testing.T) {
	kp, err := Keygen([]byte("test-setup"))
	require.NoError(t, err)

	witness, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	k, err := curve.RandomScalar()
	require.NoError(t, err)

	ciphertext, _, err := Encrypt(kp.Pub, witness)
	require.NoError(t, err)

	scaled := Multiply(kp.Pub, ciphertext, k)
	decrypted, err := kp.Decrypt(scaled)
	require.NoError(t, err)

	require.True(t, decrypted.Equal(witness.SK.Mul(k)))
}

func TestSetupTagBindsProof(t *testing.T) {
	kpA, err := Keygen([]byte("setup-a"))
	require.NoError(t, err)
	kpB, err := Keygen([]byte("setup-b"))
	require.NoError(t, err)

	witness, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, proof, err := Encrypt(kpA.Pub, witness)
	require.NoError(t, err)

	// Cross-checking against a different key's public setup tag must
	// fail even though the ciphertext and proof are otherwise
	// well-formed, since proofChallenge folds in publicSetup.
	err = Verify(kpB.Pub, proof, ciphertext, witness.PK)
	require.Error(t, err)
}
