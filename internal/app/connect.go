package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/credential"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/remote/imapbox"
)

// Connect logs in to the configured server. The password comes from the
// config when set and from the OS keyring otherwise. debug, when non-nil,
// receives the raw protocol exchange.
func Connect(ctx context.Context, cfg *model.AppConfig, log zerolog.Logger, debug io.Writer) (*imapbox.Mailbox, error) {
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}

	password, err := credential.Resolve(cfg.IMAP.Username, cfg.IMAP.Password)
	if err != nil {
		return nil, fmt.Errorf("loading IMAP password (set one with `imapdedup credentials set`): %w", err)
	}

	mb, err := imapbox.Dial(ctx, imapbox.Config{
		Addr:        cfg.IMAP.Addr(),
		Username:    cfg.IMAP.Username,
		Password:    password,
		TLS:         cfg.IMAP.TLS,
		DebugWriter: debug,
	}, log)
	var authErr *imapbox.AuthError
	if errors.As(err, &authErr) && cfg.IMAP.Password == "" {
		return nil, fmt.Errorf("%w (the stored password may be stale, run `imapdedup credentials set`)", err)
	}
	return mb, err
}
