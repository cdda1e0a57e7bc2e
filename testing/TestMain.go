// Package testing puts binaries and handlers into test mode when imported by
// test packages.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testDefaults = map[string]string{
	"TALLERCAR_TEST_MODE": "1",
	"APP_ENV":             "test",
	"GOTENBERG_URL":       "http://127.0.0.1:0",
	"LOG_LEVEL":           "error",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain forces test mode for packages that delegate to it.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
