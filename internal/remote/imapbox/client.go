// Package imapbox implements remote.Mailbox over IMAP using go-imap v2.
package imapbox

import (
	"context"
	"fmt"
	"io"
	"mime"
	"slices"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"
	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/remote"
)

// Config holds the IMAP connection settings.
type Config struct {
	Addr     string
	Username string
	Password string
	TLS      bool

	// DebugWriter, when set, receives raw protocol traffic.
	DebugWriter io.Writer
}

// AuthError is returned when the server rejects the credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Mailbox is a logged-in IMAP session.
type Mailbox struct {
	client   *imapclient.Client
	log      zerolog.Logger
	selected string
}

var _ remote.Mailbox = (*Mailbox)(nil)

// Dial connects to the server, authenticates and returns the session.
// The caller must Close it.
func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
		DebugWriter: cfg.DebugWriter,
	}

	var (
		client *imapclient.Client
		err    error
	)
	if cfg.TLS {
		client, err = imapclient.DialTLS(cfg.Addr, opts)
	} else {
		client, err = imapclient.DialStartTLS(cfg.Addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", cfg.Addr, err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &AuthError{Username: cfg.Username, Err: err}
	}

	log.Info().Str("addr", cfg.Addr).Str("username", cfg.Username).Msg("connected")

	return &Mailbox{client: client, log: log}, nil
}

// Close logs out and closes the connection.
func (m *Mailbox) Close() error {
	if err := m.client.Logout().Wait(); err != nil {
		_ = m.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return m.client.Close()
}

// ListFolders returns every selectable mailbox name.
func (m *Mailbox) ListFolders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := m.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	folders := make([]string, 0, len(list))
	for _, data := range list {
		if slices.Contains(data.Attrs, imap.MailboxAttrNoSelect) ||
			slices.Contains(data.Attrs, imap.MailboxAttrNonExistent) {
			continue
		}
		folders = append(folders, data.Mailbox)
	}
	return folders, nil
}

// SelectFolder opens name read-write.
func (m *Mailbox) SelectFolder(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := m.client.Select(name, nil).Wait()
	if err != nil {
		return fmt.Errorf("selecting %s: %w", name, err)
	}
	m.selected = name
	m.log.Debug().Str("folder", name).Uint32("messages", data.NumMessages).Msg("selected folder")
	return nil
}

// ListSequenceNumbers runs SEARCH ALL on the selected folder.
func (m *Mailbox) ListSequenceNumbers(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := m.client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", m.selected, err)
	}
	return data.AllSeqNums(), nil
}

// FetchMetadata fetches the requested items and records which ones each
// message actually carried.
func (m *Mailbox) FetchMetadata(
	ctx context.Context,
	seqs []uint32,
	fields []remote.FetchField,
) ([]remote.FetchedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, nil
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     slices.Contains(fields, remote.FieldEnvelope),
		InternalDate: slices.Contains(fields, remote.FieldInternalDate),
		RFC822Size:   slices.Contains(fields, remote.FieldSize),
	}

	fetchCmd := m.client.Fetch(imap.SeqSetNum(seqs...), fetchOpts)
	defer fetchCmd.Close()

	var out []remote.FetchedMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		out = append(out, readFetchedMessage(msg))
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching metadata in %s: %w", m.selected, err)
	}
	return out, nil
}

// readFetchedMessage drains one FETCH response.
func readFetchedMessage(msg *imapclient.FetchMessageData) remote.FetchedMessage {
	fm := remote.FetchedMessage{Seq: msg.SeqNum}
	for {
		item := msg.Next()
		if item == nil {
			break
		}

		switch item := item.(type) {
		case imapclient.FetchItemDataEnvelope:
			if item.Envelope != nil {
				fm.Envelope = &remote.Envelope{
					Subject:   item.Envelope.Subject,
					MessageID: item.Envelope.MessageID,
				}
			}
		case imapclient.FetchItemDataInternalDate:
			t := item.Time
			fm.InternalDate = &t
		case imapclient.FetchItemDataRFC822Size:
			size := item.Size
			fm.Size = &size
		}
	}
	return fm
}

// DeleteMessages adds \Deleted to seqs in the selected folder.
func (m *Mailbox) DeleteMessages(ctx context.Context, seqs []uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	storeCmd := m.client.Store(imap.SeqSetNum(seqs...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging %d messages deleted in %s: %w", len(seqs), m.selected, err)
	}
	return nil
}

// ExpungeFolder permanently removes \Deleted messages from the selected
// folder. Remaining sequence numbers may shift afterwards.
func (m *Mailbox) ExpungeFolder(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.client.Expunge().Close(); err != nil {
		return fmt.Errorf("expunging %s: %w", m.selected, err)
	}
	return nil
}
