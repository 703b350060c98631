package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v2"

	"github.com/nhle/imap-dedup/internal/app"
	"github.com/nhle/imap-dedup/internal/credential"
	"github.com/nhle/imap-dedup/internal/logging"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/progress"
	"github.com/nhle/imap-dedup/internal/store"
	"github.com/nhle/imap-dedup/internal/theme"
)

var errAborted = errors.New("aborted")

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Mirror message metadata from the server",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Only pull `FOLDER` (repeatable, defaults to all)",
			},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, true, func(a *app.App) error {
				_, err := a.Pull(c.Context, c.StringSlice("folder"))
				return err
			})
		},
	}
}

func findDuplicatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "find-duplicates",
		Usage: "Stage deletions for duplicate copies in the all-mail folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "all-mail",
				Usage: "Folder to remove duplicates from",
			},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, false, func(a *app.App) error {
				_, err := a.FindDuplicates(c.Context, c.String("all-mail"))
				return err
			})
		},
	}
}

func printDuplicatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "print-duplicates",
		Usage: "Show every duplicate and what will happen to each copy",
		Action: func(c *cli.Context) error {
			return withApp(c, false, func(a *app.App) error {
				return a.PrintDuplicates(c.Context)
			})
		},
	}
}

func deduplicateCommand() *cli.Command {
	return &cli.Command{
		Name:  "deduplicate",
		Usage: "Delete the staged duplicates on the server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Only list what would be deleted",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Action: runDeduplicate,
	}
}

func runDeduplicate(c *cli.Context) error {
	if c.Bool("dry-run") {
		return withApp(c, false, func(a *app.App) error {
			_, err := a.Deduplicate(c.Context, true)
			return err
		})
	}

	if !c.Bool("yes") {
		var plan int
		err := withApp(c, false, func(a *app.App) error {
			batches, err := a.Preview(c.Context)
			for _, fb := range batches {
				plan += fb.Total()
			}
			return err
		})
		if err != nil {
			return err
		}
		if plan == 0 {
			fmt.Fprintln(c.App.Writer, "Nothing to delete.")
			return nil
		}
		if ok, err := confirm(plan); err != nil || !ok {
			return errors.Join(errAborted, err)
		}
	}

	return withApp(c, true, func(a *app.App) error {
		_, err := a.Deduplicate(c.Context, false)
		return err
	})
}

func confirm(count int) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d messages?", count)).
				Description(theme.WarningStyle.Render("Folders are expunged afterwards. This cannot be undone.")).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	return ok, err
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show local counts and recent runs",
		Action: func(c *cli.Context) error {
			return withApp(c, false, func(a *app.App) error {
				return a.Status(c.Context)
			})
		},
	}
}

func credentialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credentials",
		Usage: "Manage the IMAP password in the OS keyring",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Store the password for the configured username",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if cfg.IMAP.Username == "" {
						return model.ErrMissingUsername
					}

					password := cfg.IMAP.Password
					if password == "" {
						err := huh.NewForm(
							huh.NewGroup(
								huh.NewInput().
									Title(fmt.Sprintf("Password for %s", cfg.IMAP.Username)).
									EchoMode(huh.EchoModePassword).
									Value(&password),
							),
						).Run()
						if err != nil {
							return err
						}
					}
					if err := credential.Set(cfg.IMAP.Username, password); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Stored password for %s\n", cfg.IMAP.Username)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Remove the stored password",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if cfg.IMAP.Username == "" {
						return model.ErrMissingUsername
					}
					return credential.Delete(cfg.IMAP.Username)
				},
			},
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("hostname") {
		cfg.IMAP.Host = c.String("hostname")
	}
	if c.IsSet("port") {
		cfg.IMAP.Port = c.Int("port")
	}
	if c.IsSet("username") {
		cfg.IMAP.Username = c.String("username")
	}
	if c.IsSet("password") {
		cfg.IMAP.Password = c.String("password")
	}
	if c.IsSet("database") {
		cfg.Database = c.String("database")
	}
	return cfg, nil
}

// withApp builds an App, connecting to the server when remote is set, and
// tears everything down after fn.
func withApp(c *cli.Context, remote bool, fn func(a *app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.ForFormat(c.App.ErrWriter, c.String("log-format"), c.Bool("verbose"))
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	a := app.New(cfg, st, nil, log, c.App.Writer)
	a.Progress = progress.NewBar(c.App.ErrWriter)

	if remote {
		var debug io.Writer
		if c.Bool("debug-imap") {
			debug = c.App.ErrWriter
		}

		mb, err := app.Connect(c.Context, cfg, log, debug)
		if err != nil {
			return err
		}
		defer func() {
			if err := mb.Close(); err != nil {
				log.Warn().Err(err).Msg("closing IMAP connection")
			}
		}()
		a.Mailbox = mb
	}

	return fn(a)
}
