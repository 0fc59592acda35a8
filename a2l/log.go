package a2l

import "github.com/btcsuite/btclog"

// log is the package-wide subsystem logger, initially disabled until
// UseLogger wires a real backend.
var log = btclog.Disabled

// UseLogger sets the subsystem logger used by this package. It should be
// called early in a daemon's startup, before any session is driven.
func UseLogger(logger btclog.Logger) {
	log = logger
}
