//go:build !windows

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/vanpelt/catnip-pty/internal/client"
	"golang.org/x/term"
)

// watchResize forwards terminal size changes to the session.
func watchResize(fd int, stream *client.Stream) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		for range ch {
			w, h, err := term.GetSize(fd)
			if err != nil || w <= 0 || h <= 0 {
				continue
			}
			_ = stream.Resize(uint16(w), uint16(h)) // #nosec G115 - terminal sizes fit in uint16
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
