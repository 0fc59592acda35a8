package a2l

import "github.com/lightninglabs/a2l/txbuilder"

// Params is the session-wide configuration a tumble is run against: the
// partial fund transaction, the fee schedule, the refund expiry, and the
// redeem/refund destinations. It is an alias of txbuilder.ProtocolParams,
// exposed under this name so callers of package a2l need not import
// txbuilder directly.
type Params = txbuilder.ProtocolParams
