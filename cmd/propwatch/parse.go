package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	File     string
	Props    []string
	Debounce time.Duration
	Level    slog.Level
}

func parseArgs(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("propwatch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	propsFlag := fs.String("props", "", "Comma separated properties to watch (default: every top-level key)")
	debounceFlag := fs.Duration("debounce", 50*time.Millisecond, "Delay used to coalesce file events")
	levelFlag := fs.String("log-level", "", "Log level: debug, info, warn, error (env: PROPWATCH_LOG_LEVEL, default: info)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: propwatch [flags] FILE")
		fmt.Fprintln(fs.Output(), "Watch the top-level keys of a YAML or JSON file and log every change.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return Config{}, fmt.Errorf("file required")
	}
	file := strings.TrimSpace(fs.Arg(0))
	if file == "" {
		fs.Usage()
		return Config{}, fmt.Errorf("file required")
	}
	if *debounceFlag <= 0 {
		return Config{}, fmt.Errorf("debounce must be positive")
	}

	levelName := strings.TrimSpace(*levelFlag)
	if levelName == "" {
		levelName = strings.TrimSpace(os.Getenv("PROPWATCH_LOG_LEVEL"))
	}
	level := slog.LevelInfo
	if levelName != "" {
		if err := level.UnmarshalText([]byte(levelName)); err != nil {
			return Config{}, fmt.Errorf("invalid log level %q", levelName)
		}
	}

	var props []string
	for _, prop := range strings.Split(*propsFlag, ",") {
		if prop = strings.TrimSpace(prop); prop != "" {
			props = append(props, prop)
		}
	}

	return Config{
		File:     file,
		Props:    props,
		Debounce: *debounceFlag,
		Level:    level,
	}, nil
}
