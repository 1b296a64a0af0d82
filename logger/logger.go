// Copyright (c) Mondoo, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package logger configures the global zerolog logger used by the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = NewConsoleWriter(os.Stderr, true, false)
}

// SetLevel parses debug, info, warn or error and applies it globally.
func SetLevel(level string) error {
	if level == "" {
		level = "info"
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return errors.Errorf("unknown log level %q", level)
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

func UseJSONLogging(out io.Writer) {
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// CliLogger writes compact, optionally colored, lines to stderr.
func CliLogger(color bool) {
	log.Logger = NewConsoleWriter(os.Stderr, true, color)
}

func NewConsoleWriter(out io.Writer, compact bool, color bool) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: out, NoColor: !color}

	if compact {
		w.FormatLevel = consoleFormatLevel(color)
		w.FormatTimestamp = func(i interface{}) string { return "" }
	}

	return zerolog.New(w).With().Timestamp().Logger()
}

func consoleFormatLevel(color bool) zerolog.Formatter {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI
	}

	return func(i interface{}) string {
		var l string
		var c termenv.Color

		if ll, ok := i.(string); ok {
			switch ll {
			case "trace":
				l = "TRC"
				c = profile.Color("8")
			case "debug":
				l = "DBG"
				c = profile.Color("4")
			case "info":
				l = "→"
				c = profile.Color("2")
			case "warn":
				l = "!"
				c = profile.Color("3")
			case "error", "fatal", "panic":
				l = "x"
				c = profile.Color("1")
			default:
				l = "???"
			}
		} else {
			if i == nil {
				l = "???"
			} else {
				l = strings.ToUpper(fmt.Sprintf("%s", i))
				if len(l) > 3 {
					l = l[0:3]
				}
			}
		}

		if !color {
			return l
		}
		return termenv.String(l).Foreground(c).String()
	}
}
