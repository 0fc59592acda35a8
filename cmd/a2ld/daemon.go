package main

import (
	"os"
	"os/signal"

	"github.com/lightninglabs/a2l/hsmcl"
)

// daemon holds the long-lived state a2ld keeps across every tumble session
// it drives: its configuration and its long-term HSM-CL keypair. Unlike
// the teacher's server, it owns no wallet, no P2P stack, and no persistent
// channel state; each session is driven to completion and discarded.
type daemon struct {
	cfg *config
	he  hsmcl.KeyPair

	shutdownChannel chan struct{}
}

// newDaemon constructs a daemon ready to run.
func newDaemon(cfg *config, he hsmcl.KeyPair) *daemon {
	return &daemon{
		cfg:             cfg,
		he:              he,
		shutdownChannel: make(chan struct{}),
	}
}

// run blocks until an interrupt signal arrives, mirroring the teacher's
// shutdownChannel wait in lndMain. A session-driver RPC listener would
// hang off this same daemon in a production build; it is out of scope
// here, so run exists only to give the process a clean shutdown path.
func (d *daemon) run() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ltndLog.Infof("a2ld ready")

	select {
	case <-interrupt:
	case <-d.shutdownChannel:
	}

	ltndLog.Info("Shutdown complete")
	return nil
}
