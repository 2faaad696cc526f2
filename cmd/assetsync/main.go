// cmd/assetsync/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ProhorTaim/Egregoria/internal/config"
	"github.com/ProhorTaim/Egregoria/internal/console"
)

func main() {
	// Load configuration
	cfg := config.Load()

	stdout, tty := console.Stdout()
	app := newApp(cfg, environment{
		stdout: stdout,
		stderr: os.Stderr,
		color:  tty,
		getwd:  os.Getwd,
	})

	os.Exit(exitCode(app.Run(os.Args), os.Stderr))
}

// exitCode prints err, if it carries a message, and maps it to a process
// status. cli.Exit errors keep their code; anything else is 1.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		if msg := coder.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return coder.ExitCode()
	}

	fmt.Fprintln(stderr, "error:", err)
	return 1
}
