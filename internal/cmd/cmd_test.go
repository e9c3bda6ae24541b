package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/catnip-pty/internal/models"
)

func TestRenderSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Contains(t, renderSessions(nil, now), "No sessions")

	code := 1
	out := renderSessions([]models.PTYSessionInfo{
		{ID: "main", Shell: "/bin/zsh", Cols: 80, Rows: 24, PID: 100, CreatedAt: now.Add(-90 * time.Second), Running: true},
		{ID: "build", Shell: "/bin/bash", Cols: 120, Rows: 40, PID: 200, CreatedAt: now.Add(-time.Hour), ExitCode: &code},
	}, now)

	for _, want := range []string{"main", "build", "80x24", "120x40", "running", "exited (1)", "1m30s", "1h0m0s"} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "catnip-pty "+GetVersion())
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "attach", "sessions", "close", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}
