package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-admin-session/internal/cli"
	"github.com/jrsteele09/go-admin-session/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if servesHTTP(os.Args[1:]) {
		displayAppname(config.New().GetAppName())
	}
	return cli.Execute(ctx)
}

// servesHTTP is true for the long running commands, which get a banner.
func servesHTTP(args []string) bool {
	return slices.Contains(args, "console") || slices.Contains(args, "devapi")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
