// Command docsage drafts and reviews release notes from past design documents,
// release notes and review comments.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/docsage/internal/app"
	"github.com/kailas-cloud/docsage/internal/usecase/pipeline"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, app.New))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, newApp newAppFunc) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

// reportError prints err as a red "[ERROR] ..." line.
func reportError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed, color.Bold).Fprintln(w, pipeline.Marked(err))
}
