package main

import (
	"fmt"
	"os"
	"runtime"

	flags "github.com/jessevdk/go-flags"

	"github.com/lightninglabs/a2l/hsmcl"
)

// a2ldMain is the true entry point for a2ld. Kept separate from main so
// deferred cleanup runs even when the process exits early via a returned
// error rather than os.Exit.
func a2ldMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ltndLog.Infof("Loaded config, data dir %v", cfg.DataDir)

	heKeyPair, err := hsmcl.Keygen([]byte("a2ld"))
	if err != nil {
		return fmt.Errorf("unable to generate HSM-CL keypair: %w", err)
	}
	ltndLog.Infof("HSM-CL keypair ready")

	daemon := newDaemon(cfg, heKeyPair)
	return daemon.run()
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := a2ldMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
