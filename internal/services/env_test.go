package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(t *testing.T, env []string) map[string]string {
	t.Helper()
	m := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		require.True(t, ok, "malformed entry %q", kv)
		_, dup := m[k]
		require.False(t, dup, "duplicate variable %s", k)
		m[k] = v
	}
	return m
}

func testEnvOptions() EnvOptions {
	return EnvOptions{
		Shell:       "/bin/zsh",
		TermProgram: "catnip-pty",
		Cols:        120,
		Rows:        40,
	}
}

func TestSanitizeEnvDropsCIAndKeepsCredentials(t *testing.T) {
	environ := []string{
		"CI=true",
		"GITHUB_ACTIONS=true",
		"GITHUB_TOKEN=ghp_xxx",
		"AWS_ACCESS_KEY_ID=AKIA",
		"ANTHROPIC_API_KEY=sk-ant",
		"OPENAI_API_KEY=sk-oa",
		"HOME=/home/me",
	}

	got := envMap(t, SanitizeEnv(environ, testEnvOptions()))

	assert.NotContains(t, got, "CI")
	assert.NotContains(t, got, "GITHUB_ACTIONS")
	assert.Equal(t, "ghp_xxx", got["GITHUB_TOKEN"])
	assert.Equal(t, "AKIA", got["AWS_ACCESS_KEY_ID"])
	assert.Equal(t, "sk-ant", got["ANTHROPIC_API_KEY"])
	assert.Equal(t, "sk-oa", got["OPENAI_API_KEY"])
	assert.Equal(t, "/home/me", got["HOME"])
}

func TestSanitizeEnvDropsEveryDeniedName(t *testing.T) {
	var environ []string
	for _, name := range ciEnvDenylist {
		environ = append(environ, name+"=1")
	}
	environ = append(environ,
		"VSCODE_PID=1",
		"VSCODE_IPC_HOOK_CLI=/tmp/sock",
		"ELECTRON_RUN_AS_NODE=1",
		"GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN=x",
		"TERM_PROGRAM_VERSION=1.2",
		"GIT_ASKPASS=/askpass.sh",
		"SSH_ASKPASS=/askpass",
	)

	got := envMap(t, SanitizeEnv(environ, testEnvOptions()))

	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		assert.NotContains(t, got, name)
	}
}

func TestSanitizeEnvCanonicalValues(t *testing.T) {
	environ := []string{
		"TERM=dumb",
		"TERM_PROGRAM=vscode",
		"SHELL=/bin/fish",
		"COLUMNS=80",
		"PATH=/usr/bin",
	}

	out := SanitizeEnv(environ, testEnvOptions())
	got := envMap(t, out)

	assert.Equal(t, "/bin/zsh", got["SHELL"])
	assert.Equal(t, "xterm-256color", got["TERM"])
	assert.Equal(t, "catnip-pty", got["TERM_PROGRAM"])
	assert.Equal(t, "truecolor", got["COLORTERM"])
	assert.Equal(t, "120", got["COLUMNS"])
	assert.Equal(t, "40", got["LINES"])
	assert.Equal(t, "3", got["FORCE_COLOR"])
	assert.Equal(t, "1", got["CLICOLOR_FORCE"])
	assert.Contains(t, got, "PROMPT_EOL_MARK")
	assert.Empty(t, got["PROMPT_EOL_MARK"])
	assert.Equal(t, "/usr/bin", got["PATH"])

	// Pass-through variables keep their relative order ahead of the
	// canonical block.
	assert.Equal(t, "PATH=/usr/bin", out[0])
}

func TestSanitizeEnvDoesNotMutateInput(t *testing.T) {
	environ := []string{"CI=1", "HOME=/h", "VSCODE_PID=2"}
	snapshot := append([]string(nil), environ...)

	_ = SanitizeEnv(environ, testEnvOptions())

	assert.Equal(t, snapshot, environ)
}

func TestSanitizeEnvPreservesOrder(t *testing.T) {
	environ := []string{"Z=1", "CI=1", "A=2", "M=3"}
	out := SanitizeEnv(environ, testEnvOptions())
	assert.Equal(t, []string{"Z=1", "A=2", "M=3"}, out[:3])
}

func TestSanitizeEnvExtraLists(t *testing.T) {
	opts := testEnvOptions()
	opts.ExtraDenylist = []string{"MY_CI_FLAG"}
	opts.ExtraDenyPrefixes = []string{"JETBRAINS_"}

	got := envMap(t, SanitizeEnv([]string{
		"MY_CI_FLAG=1",
		"JETBRAINS_IDE=goland",
		"CI=1",
		"KEEP=me",
	}, opts))

	assert.NotContains(t, got, "MY_CI_FLAG")
	assert.NotContains(t, got, "JETBRAINS_IDE")
	assert.NotContains(t, got, "CI")
	assert.Equal(t, "me", got["KEEP"])
}

func TestEnvSanitizerExcluded(t *testing.T) {
	s := NewEnvSanitizer(nil, nil)

	assert.True(t, s.Excluded("CI"))
	assert.True(t, s.Excluded("VSCODE_GIT_IPC_HANDLE"))
	assert.True(t, s.Excluded("TERM_PROGRAM"))
	assert.False(t, s.Excluded("CIRCLE_TOKEN"))
	assert.False(t, s.Excluded("PATH"))
	assert.False(t, s.Excluded("ci"))
}
