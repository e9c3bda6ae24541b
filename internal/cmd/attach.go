package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vanpelt/catnip-pty/internal/client"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/services"
	"golang.org/x/term"
)

// detachKey is Ctrl+].
const detachKey = 0x1d

var (
	attachCwd     string
	closeOnDetach bool
)

var attachCmd = &cobra.Command{
	Use:   "attach <session-id>",
	Short: "🖥️  Attach this terminal to a session",
	Long: `# 🖥️  Attach to a Session

**Connects your terminal to a session on the host, creating it if needed.**

Press **Ctrl+]** to detach. The session keeps running unless **--close** is set.

## 💡 Examples

` + "```bash\ncatnip-pty attach main\ncatnip-pty attach build --cwd ~/src/app --close\n```",
	Args: cobra.ExactArgs(1),
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachCwd, "cwd", "", "working directory for a new session")
	attachCmd.Flags().BoolVar(&closeOnDetach, "close", false, "close the session on detach")
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := cmd.Context()

	c, err := newClient()
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	cols, rows := 80, 24
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
			cols, rows = w, h
		}
	}

	_, err = c.GetSession(ctx, id)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		req := models.CreatePTYRequest{ID: id, Cols: uint16(cols), Rows: uint16(rows), Cwd: attachCwd} // #nosec G115 - terminal sizes fit in uint16
		if err := c.CreatePTY(ctx, req); err != nil {
			return fmt.Errorf("failed to create session %s: %w", id, err)
		}
	case err != nil:
		return err
	default:
		if err := c.ResizePTY(ctx, id, uint16(cols), uint16(rows)); err != nil { // #nosec G115 - terminal sizes fit in uint16
			return err
		}
	}

	stream, err := c.Stream(ctx, id)
	if err != nil {
		return err
	}
	defer stream.Close()

	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to make stdin raw: %w", err)
		}
		defer func() {
			if err := term.Restore(fd, oldState); err != nil {
				fmt.Fprintf(os.Stderr, "catnip-pty: failed to restore terminal: %v\n", err)
			}
		}()
	}

	stopResize := watchResize(fd, stream)
	defer stopResize()

	detached := make(chan struct{})
	go forwardInput(stream, detached)

	exited, err := pumpOutput(stream, detached)
	if err != nil {
		return err
	}

	if exited {
		fmt.Fprint(os.Stderr, "\r\n[session ended]\r\n")
		return nil
	}

	fmt.Fprintf(os.Stderr, "\r\n[detached from %s]\r\n", id)
	if closeOnDetach {
		return c.ClosePTY(ctx, id)
	}
	return nil
}

func forwardInput(stream *client.Stream, detached chan<- struct{}) {
	defer close(detached)
	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		data := buf[:n]
		for i, b := range data {
			if b == detachKey {
				if i > 0 {
					_ = stream.SendInput(string(data[:i]))
				}
				return
			}
		}
		if err := stream.SendInput(string(data)); err != nil {
			return
		}
	}
}

// pumpOutput copies the stream to stdout until the session ends (true) or
// the user detaches (false).
func pumpOutput(stream *client.Stream, detached <-chan struct{}) (bool, error) {
	for {
		select {
		case <-detached:
			return false, nil
		case msg, ok := <-stream.Messages():
			if !ok {
				return true, stream.Err()
			}
			switch msg.Type {
			case models.StreamOutput:
				if _, err := os.Stdout.WriteString(msg.Data); err != nil {
					return false, err
				}
			case models.StreamError:
				fmt.Fprintf(os.Stderr, "\r\ncatnip-pty: %s\r\n", msg.Error)
			case models.StreamExit:
				return true, nil
			}
		}
	}
}
