// Package testing switches the binaries into test mode when imported by
// package tests.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FUNGUS_TEST_MODE", "1")
		if os.Getenv("FUNGUS_API_URL") == "" {
			_ = os.Setenv("FUNGUS_API_URL", "http://127.0.0.1:0/api")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
