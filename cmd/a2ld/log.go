package main

import (
	"os"

	"github.com/btcsuite/btclog"

	"github.com/lightninglabs/a2l/a2l"
	"github.com/lightninglabs/a2l/chainwatch"
)

// backendLog is the logging backend all subsystem loggers write through.
var backendLog = btclog.NewBackend(os.Stdout)

// ltndLog is this daemon's own top-level subsystem logger.
var ltndLog = backendLog.Logger("A2LD")

// subsystemLoggers maps each subsystem's tag to its logger, used by
// setLogLevel(s) to adjust verbosity at runtime.
var subsystemLoggers = map[string]btclog.Logger{
	"A2LD": ltndLog,
	"A2L":  backendLog.Logger("A2L"),
	"CHNW": backendLog.Logger("CHNW"),
}

// initLogging wires every subsystem's logger into its package.
func initLogging() {
	a2l.UseLogger(subsystemLoggers["A2L"])
	chainwatch.UseLogger(subsystemLoggers["CHNW"])
}

// setLogLevel sets the logging level for provided subsystem. Subsystems
// not already in subsystemLoggers are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystems, used to initialise
// logging from the configured default level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
