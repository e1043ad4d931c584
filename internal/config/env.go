package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consumed at startup. They select process-cleanup and
// console behavior only; the speech path never reads them.
const (
	EnvSkipCleanup = "TTSREAD_SKIP_PROCESS_CLEANUP"
	EnvFastKill    = "TTSREAD_FAST_KILL"
	EnvConsole     = "TTSREAD_CONSOLE_MODE"
	EnvFromBatch   = "TTSREAD_FROM_BATCH"
)

// Modes holds the startup mode switches read from the environment.
type Modes struct {
	SkipCleanup bool
	FastKill    bool
	Console     bool
	FromBatch   bool
}

// ModesFromEnv loads an optional .env file and reads the mode switches.
func ModesFromEnv() Modes {
	_ = godotenv.Load()
	return Modes{
		SkipCleanup: truthy(os.Getenv(EnvSkipCleanup)),
		FastKill:    truthy(os.Getenv(EnvFastKill)),
		Console:     truthy(os.Getenv(EnvConsole)),
		FromBatch:   truthy(os.Getenv(EnvFromBatch)),
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
