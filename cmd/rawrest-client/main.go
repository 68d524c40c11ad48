package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"dqx0.com/go/rawrest/internal/obs"
	"dqx0.com/go/rawrest/rawclient"
)

func main() {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	color.NoColor = !tty || os.Getenv("NO_COLOR") != ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lvl := obs.Warn
	if os.Getenv("RAWREST_DEBUG") != "" {
		lvl = obs.Debug
	}
	c := &rawclient.Client{
		Console:   rawclient.NewConsole(os.Stdin, colorable.NewColorableStdout()),
		Transport: &rawclient.Transport{},
		Logger:    obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: lvl}.With("client"),
	}
	if err := c.Run(ctx); err != nil {
		stop()
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
