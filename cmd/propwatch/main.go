package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/shuakami/propwatch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, errOut io.Writer) error {
	cfg, err := parseArgs(args, errOut)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Level}))
	interceptor, err := propwatch.NewInterceptor(propwatch.Config{Logger: logger})
	if err != nil {
		return err
	}
	defer interceptor.Close()

	target := propwatch.NewObject()
	source, err := propwatch.NewFileSource(target, propwatch.ConfigSource{
		Path:     cfg.File,
		Debounce: cfg.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer source.Stop()

	props := cfg.Props
	if len(props) == 0 {
		props = target.Keys()
	}
	for _, name := range props {
		watchProperty(interceptor, target, name, logger)
	}

	if err := source.Start(); err != nil {
		return err
	}
	logger.Info("watching", "file", cfg.File, "properties", len(props))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-source.EventChan:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				logger.Warn("reload failed", "error", ev.Err)
			}
			for _, name := range ev.Added {
				logger.Info("property added", "property", name, "value", target.Get(name))
				if len(cfg.Props) == 0 || slices.Contains(cfg.Props, name) {
					watchProperty(interceptor, target, name, logger)
				}
			}
		}
	}
}

func watchProperty(interceptor *propwatch.Interceptor, target *propwatch.Object, name string, logger *slog.Logger) {
	_, err := interceptor.Watch(target, name, propwatch.Func(func(c propwatch.Change) (any, error) {
		logger.Info("property changed", "property", c.Property, "old", c.OldValue, "new", c.NewValue)
		return nil, nil
	}), nil)
	if err != nil {
		logger.Warn("cannot watch property", "property", name, "error", err)
	}
}
