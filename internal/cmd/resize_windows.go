//go:build windows

package cmd

import "github.com/vanpelt/catnip-pty/internal/client"

func watchResize(fd int, stream *client.Stream) func() {
	return func() {}
}
