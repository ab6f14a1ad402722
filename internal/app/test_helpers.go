package app

import (
	"os"
	"testing"

	"github.com/vk/jobchain/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs are kept
// in the returned buffer and dumped when JOBCHAIN_TEST_LOGS is "true".
func SetupAppTest(t *testing.T, cfg *Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, opts...)

	t.Cleanup(func() {
		if err := testApp.Close(); err != nil {
			t.Errorf("closing app: %v", err)
		}
		if os.Getenv("JOBCHAIN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
