package services

import (
	"strconv"
	"strings"
)

// ciEnvDenylist names variables that make CLI tools believe they run on a
// build server, which turns off colours, spinners and interactive prompts.
var ciEnvDenylist = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"BUILD_NUMBER",
	"RUN_ID",
	"CI_NAME",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"APPVEYOR",
	"BUILDKITE",
	"DRONE",
	"SEMAPHORE",
	"TF_BUILD",
	"TEAMCITY_VERSION",
	"JENKINS_URL",
	"HUDSON_URL",
	"BITBUCKET_COMMIT",
	"CODEBUILD_BUILD_ARN",
	"SYSTEM_TEAMFOUNDATIONCOLLECTIONURI",
}

// hostEnvPrefixes strip variables leaked by an enclosing editor or
// Electron host.
var hostEnvPrefixes = []string{
	"VSCODE_",
	"ELECTRON_",
	"GITHUB_CODESPACES_",
}

// hostEnvNames are single variables that would misidentify the terminal or
// route credential prompts to a foreign helper.
var hostEnvNames = []string{
	"TERM_PROGRAM",
	"TERM_PROGRAM_VERSION",
	"VSCODE_IPC_HOOK_CLI",
	"GIT_ASKPASS",
	"SSH_ASKPASS",
}

// EnvOptions controls SanitizeEnv.
type EnvOptions struct {
	Shell       string
	TermProgram string
	Cols        uint16
	Rows        uint16

	// ExtraDenylist and ExtraDenyPrefixes extend the built-in lists.
	ExtraDenylist     []string
	ExtraDenyPrefixes []string
}

// EnvSanitizer filters an inherited environment for a child shell.
type EnvSanitizer struct {
	deny     map[string]struct{}
	prefixes []string
}

// NewEnvSanitizer builds a sanitizer from the built-in lists plus any extras.
func NewEnvSanitizer(extraNames, extraPrefixes []string) *EnvSanitizer {
	s := &EnvSanitizer{
		deny: make(map[string]struct{}, len(ciEnvDenylist)+len(hostEnvNames)+len(extraNames)),
	}
	for _, lists := range [][]string{ciEnvDenylist, hostEnvNames, extraNames} {
		for _, name := range lists {
			if name != "" {
				s.deny[name] = struct{}{}
			}
		}
	}
	s.prefixes = append(s.prefixes, hostEnvPrefixes...)
	for _, p := range extraPrefixes {
		if p != "" {
			s.prefixes = append(s.prefixes, p)
		}
	}
	return s
}

// Excluded reports whether name is dropped from the child environment.
func (s *EnvSanitizer) Excluded(name string) bool {
	if _, ok := s.deny[name]; ok {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Filter returns environ without excluded variables. Order is preserved and
// environ itself is not modified.
func (s *EnvSanitizer) Filter(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if s.Excluded(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// SanitizeEnv filters environ and appends the canonical terminal variables.
// A canonical variable replaces any inherited value of the same name.
func SanitizeEnv(environ []string, opts EnvOptions) []string {
	s := NewEnvSanitizer(opts.ExtraDenylist, opts.ExtraDenyPrefixes)
	canonical := canonicalEnv(opts)

	override := make(map[string]struct{}, len(canonical))
	for _, kv := range canonical {
		name, _, _ := strings.Cut(kv, "=")
		override[name] = struct{}{}
	}

	out := make([]string, 0, len(environ)+len(canonical))
	for _, kv := range s.Filter(environ) {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := override[name]; ok {
			continue
		}
		out = append(out, kv)
	}
	return append(out, canonical...)
}

func canonicalEnv(opts EnvOptions) []string {
	return []string{
		"SHELL=" + opts.Shell,
		"TERM=xterm-256color",
		"TERM_PROGRAM=" + opts.TermProgram,
		"COLORTERM=truecolor",
		"COLUMNS=" + strconv.Itoa(int(opts.Cols)),
		"LINES=" + strconv.Itoa(int(opts.Rows)),
		"FORCE_COLOR=3",
		"CLICOLOR_FORCE=1",
		// zsh prints a reverse-video % for output without a trailing newline
		"PROMPT_EOL_MARK=",
	}
}
