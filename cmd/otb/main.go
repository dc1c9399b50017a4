package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"otb/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// printError flattens a structured error into one line tagged with its kind.
func printError(w io.Writer, err error) {
	kind := services.KindOf(err)
	if kind == "" || kind == services.KindUnclassified {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error [%s]: %v\n", kind, err)
}

func exitCode(err error) int {
	switch services.KindOf(err) {
	case services.KindValidation, services.KindConfiguration:
		return 2
	case services.KindBusy:
		return 3
	default:
		return 1
	}
}
