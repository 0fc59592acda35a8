package chainwatch

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
)

// ErrQuitting is returned when the resolver's Quit channel fires before
// resolution completes.
var ErrQuitting = errors.New("chainwatch: quitting")

// Outcome describes which path ultimately spent the joint output a
// JointOutputResolver was watching.
type Outcome int

const (
	// OutcomeRedeemed means a spend of the joint output was observed
	// before the refund timelock matured. The spend is not classified:
	// it may be the redeem or the refund transaction (see Resolve).
	OutcomeRedeemed Outcome = iota

	// OutcomeRefunded means no redeem was observed before the timelock
	// matured, so the refund transaction should be broadcast.
	OutcomeRefunded
)

// JointOutputResolver watches a single fund transaction's joint output
// until it is spent, deciding whether that happened through the redeem path
// or whether the refund timelock matured first and the refund transaction
// needs to be broadcast. It holds no persistent state across restarts,
// mirroring the no-persistence stance the rest of this module takes.
type JointOutputResolver struct {
	Notifier ChainNotifier

	// JointOutpoint is the fund transaction's output shared by both
	// parties, spent by either the redeem or the refund transaction.
	JointOutpoint wire.OutPoint

	// PkScript is the joint output's scriptPubKey (its P2WSH script),
	// needed to register the spend notification against some backends.
	PkScript []byte

	// ExpiryHeight is the absolute block height at which the refund
	// transaction's timelock matures.
	ExpiryHeight int32

	// HeightHint is the block the fund transaction confirmed in, used to
	// bound the notifier's historical rescan.
	HeightHint uint32

	// Quit, when closed, aborts Resolve early.
	Quit chan struct{}
}

// Resolve blocks until the joint output is spent or the refund timelock
// matures without a spend being observed, whichever comes first. The
// returned SpendDetail, when non-nil, is the transaction that actually
// spent the output; callers distinguish the redeem and refund paths by
// comparing SpendDetail.SpendingTx against their own known redeem/refund
// transactions.
func (r *JointOutputResolver) Resolve() (Outcome, *SpendDetail, error) {
	spendNtfn, err := r.Notifier.RegisterSpendNtfn(
		&r.JointOutpoint, r.PkScript, r.HeightHint,
	)
	if err != nil {
		return OutcomeRefunded, nil, err
	}

	epochNtfn, err := r.Notifier.RegisterBlockEpochNtfn()
	if err != nil {
		return OutcomeRefunded, nil, err
	}

	for {
		select {
		case detail, ok := <-spendNtfn.Spend:
			if !ok {
				return OutcomeRefunded, nil, ErrQuitting
			}
			log.Infof("joint outpoint %v spent by %v", r.JointOutpoint,
				detail.SpenderTxHash)
			return OutcomeRedeemed, detail, nil

		case epoch, ok := <-epochNtfn.Epochs:
			if !ok {
				return OutcomeRefunded, nil, ErrQuitting
			}
			if epoch.Height >= r.ExpiryHeight {
				log.Infof("refund timelock matured at height %v "+
					"for joint outpoint %v without an observed "+
					"redeem", epoch.Height, r.JointOutpoint)
				return OutcomeRefunded, nil, nil
			}

		case <-r.Quit:
			return OutcomeRefunded, nil, ErrQuitting
		}
	}
}
