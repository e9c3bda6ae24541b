package main

import "github.com/vanpelt/catnip-pty/internal/cmd"

// @title Catnip PTY API
// @version 1.0
// @description PTY sessions for an embedded terminal
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
