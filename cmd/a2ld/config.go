package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	defaultConfigFilename = "a2ld.conf"
	defaultLogLevel       = "info"
	defaultDataDir        = "data"
	defaultExpiryBlocks   = 144
)

var (
	defaultHomeDir    = btcutil.AppDataDir("a2ld", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

// config holds a2ld's daemon-level settings: its data directory, what
// network it runs against, and the fee/expiry
// defaults new tumble sessions are built with absent per-session overrides.
type config struct {
	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	DataDir    string `long:"datadir" description:"Data directory, created at startup; the HSM-CL keypair is generated fresh on each start and not written here"`
	LogLevel   string `long:"loglevel" description:"Logging level for all subsystems"`

	RPCListen string `long:"rpclisten" description:"Host:port for session-driver RPC connections; a2ld opens no listener on it"`

	TestNet3 bool `long:"testnet" description:"Use the test network"`
	RegTest  bool `long:"regtest" description:"Use the regression test network"`
	SimNet   bool `long:"simnet" description:"Use the simulation test network"`

	TumblerFeeSat    int64 `long:"tumblerfee" description:"Default tumbler service fee, in satoshis"`
	FeePerWeightUnit int64 `long:"feeperwu" description:"Default spend-transaction fee rate, in satoshis per weight unit"`
	ExpiryBlocks     int32 `long:"expiryblocks" description:"Default refund timelock, in blocks relative to funding confirmation"`

	ActiveNetParams *chaincfg.Params
}

// defaultConfig returns a config populated with a2ld's defaults, before any
// config file or command-line flags are applied.
func defaultConfig() config {
	return config{
		ConfigFile:       defaultConfigFile,
		DataDir:          filepath.Join(defaultHomeDir, defaultDataDir),
		LogLevel:         defaultLogLevel,
		FeePerWeightUnit: 10,
		ExpiryBlocks:     defaultExpiryBlocks,
		ActiveNetParams:  &chaincfg.MainNetParams,
	}
}

// loadConfig reads a2ld's config file, if present, then overlays any
// command-line flags, and sets up logging as a side effect. This mirrors
// the daemon bring-up sequence every lnd-derived binary follows.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	preParser := flags.NewParser(&cfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		return nil, err
	}

	configFile := cfg.ConfigFile
	cfg = defaultConfig()
	cfg.ConfigFile = configFile

	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	switch {
	case cfg.TestNet3:
		cfg.ActiveNetParams = &chaincfg.TestNet3Params
	case cfg.RegTest:
		cfg.ActiveNetParams = &chaincfg.RegressionNetParams
	case cfg.SimNet:
		cfg.ActiveNetParams = &chaincfg.SimNetParams
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("unable to create data directory: %w", err)
	}

	initLogging()
	setLogLevels(cfg.LogLevel)

	return &cfg, nil
}
