package a2l

import "github.com/go-errors/errors"

// Error taxonomy shared by every role's state machine. A failure at any of
// these is fatal to the session: the caller's only recourse is the refund
// path after expiry.
var (
	// ErrInvalidProof is returned when a DLEQ or HSM-CL proof rejects its
	// statement.
	ErrInvalidProof = errors.New("a2l: invalid proof")

	// ErrInvalidSignature is returned when an ECDSA verification fails,
	// or an encrypted signature's second verification stage fails.
	ErrInvalidSignature = errors.New("a2l: invalid signature")

	// ErrPuzzleTweakMismatch is returned when tau*A' != A''.
	ErrPuzzleTweakMismatch = errors.New("a2l: puzzle tweak mismatch")

	// ErrRecoveryMismatch is returned when neither candidate of ybar*G
	// equals +-Y.
	ErrRecoveryMismatch = errors.New("a2l: recovery key mismatch")

	// ErrUnexpectedMessage is returned when an inbound message does not
	// match what the current state variant accepts.
	ErrUnexpectedMessage = errors.New("a2l: unexpected message")

	// ErrUnexpectedTransaction is returned when an observed transaction
	// does not match what the current state variant accepts.
	ErrUnexpectedTransaction = errors.New("a2l: unexpected transaction")

	// ErrNoMessage is returned when the current state has no outbound
	// message to produce.
	ErrNoMessage = errors.New("a2l: no message to send")

	// ErrNoTransaction is returned when the current state has no
	// transaction to surface.
	ErrNoTransaction = errors.New("a2l: no transaction available")
)
