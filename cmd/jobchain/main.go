package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vk/jobchain/internal/app"
	"github.com/vk/jobchain/internal/cli"
)

// main is the entrypoint for the jobchain application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application panicked: %v", r)
		}
	}()

	jobchain := app.NewApp(outW, cfg)
	defer func() {
		if cerr := jobchain.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch {
	case cfg.List:
		names, err := jobchain.ListChains(ctx)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			fmt.Fprintln(outW, strings.Join(names, "\n"))
		}
		return nil
	case cfg.Export != "":
		out, err := jobchain.Export(ctx)
		if err != nil {
			return err
		}
		_, err = outW.Write(out)
		return err
	}

	res, err := jobchain.Run(ctx)
	if err != nil {
		return err
	}
	slog.Debug("Run finished.", "run_id", res.RunID)
	return nil
}
