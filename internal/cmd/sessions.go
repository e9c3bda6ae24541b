package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/vanpelt/catnip-pty/internal/models"
)

const (
	colorPrimary = "#7C3AED"
	colorMuted   = "#6B7280"
	colorSuccess = "#10B981"
	colorError   = "#EF4444"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPrimary)).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	exitedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "📋 List sessions on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sessions, err := c.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSessions(sessions, time.Now()))
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <session-id>...",
	Short: "🛑 Close one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.ClosePTY(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to close %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Closed %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(closeCmd)
}

func renderSessions(sessions []models.PTYSessionInfo, now time.Time) string {
	if len(sessions) == 0 {
		return mutedStyle.Render("No sessions")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "SHELL", "SIZE", "PID", "STATUS", "AGE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, s := range sessions {
		t.Row(
			s.ID,
			s.Shell,
			fmt.Sprintf("%dx%d", s.Cols, s.Rows),
			strconv.Itoa(s.PID),
			sessionStatus(s),
			now.Sub(s.CreatedAt).Truncate(time.Second).String(),
		)
	}
	return t.Render()
}

func sessionStatus(s models.PTYSessionInfo) string {
	if s.Running {
		return runningStyle.Render("running")
	}
	if s.ExitCode != nil {
		return exitedStyle.Render(fmt.Sprintf("exited (%d)", *s.ExitCode))
	}
	return exitedStyle.Render("exited")
}
