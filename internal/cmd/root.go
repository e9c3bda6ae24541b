package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vanpelt/catnip-pty/internal/client"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "catnip-pty",
	Short: "🐱 Catnip PTY - terminal sessions for embedded shells",
	Long: `# 🐱 Catnip PTY

**Hosts interactive shell sessions for an embedded terminal.**

## ✨ Features

- 🖥️  **Login shells** on real pseudo-terminals with a clean environment
- ⚡ **Coalesced output** streamed over WebSockets, never splitting a UTF-8 character
- 📐 **Resize, write and close** commands over a small JSON API
- 📡 **Lifecycle events** over Server-Sent Events
- 📊 **Prometheus metrics** on /metrics

## 🚀 Getting Started

Run **catnip-pty serve** to start the host, then **catnip-pty attach main** to
open a session in your terminal.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "URL of the catnip-pty host")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CATNIP_PTY_AUTH_TOKEN"), "bearer token for the host")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})
}

func defaultServerURL() string {
	if v := os.Getenv("CATNIP_PTY_SERVER"); v != "" {
		return v
	}
	return "http://127.0.0.1:8585"
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, authToken)
}

// renderMarkdownHelp renders command help with glamour
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## 📖 Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## 🔧 Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() {
		helpContent.WriteString("## ⚙️  Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.LocalFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	if cmd.HasAvailableInheritedFlags() {
		helpContent.WriteString("## 🌐 Global Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.InheritedFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_ = cmd.Usage()
		return
	}

	rendered, err := renderer.Render(helpContent.String())
	if err != nil {
		_ = cmd.Usage()
		return
	}

	fmt.Fprint(cmd.OutOrStdout(), rendered)
}
