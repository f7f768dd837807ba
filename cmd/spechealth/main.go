package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/spechealth/internal/infrastructure/cli"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := cli.NewRootCmd(ctx, cli.Options{Verbose: isVerbose()})
	err := root.ExecuteContext(ctx)
	_ = cleanup()
	stop()
	if err != nil {
		var exitErr *helpers.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("SPECHEALTH_DEBUG"), "1") || strings.EqualFold(os.Getenv("SPECHEALTH_DEBUG"), "true")
}
