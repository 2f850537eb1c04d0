package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv is set by the test guard package; binaries exit early when it
// is "1" so that package tests never open sockets or reach Redis.
const TestModeEnv = "FUNGUS_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	testMode.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the binaries should skip startup.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	readTestMode()
}
