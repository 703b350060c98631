package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nhle/imap-dedup/internal/logging"
	"github.com/nhle/imap-dedup/internal/model"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Reports go to stdout; logs and progress go to
// stderr.
func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "imapdedup",
		Usage:     "Find and remove duplicate messages from an IMAP account",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			pullCommand(),
			findDuplicatesCommand(),
			printDuplicatesCommand(),
			deduplicateCommand(),
			statusCommand(),
			credentialsCommand(),
		},
	}
}

// globalFlags are shared by every command. -v is left to cli's own
// --version flag.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load configuration from `FILE`",
			Value:   model.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:  "hostname",
			Usage: "IMAP server host",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "IMAP server port",
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "IMAP username",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "IMAP password (defaults to the OS keyring)",
			EnvVars: []string{"IMAPDEDUP_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "database",
			Usage: "Path to the local SQLite `FILE`",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log output `FORMAT`: console or json",
			Value: logging.FormatConsole,
		},
		&cli.BoolFlag{
			Name:  "debug-imap",
			Usage: "Dump the IMAP protocol exchange to stderr",
		},
	}
}
