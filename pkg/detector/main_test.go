package detector

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	// Keep the shared logger off the rotating log file.
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}
