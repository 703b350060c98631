package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nhle/imap-dedup/internal/remote"
)

// FakeMessage is a message held by FakeMailbox.
type FakeMessage struct {
	Seq       uint32
	Subject   string
	MessageID string
	Date      time.Time
	Size      int64
}

// DeleteCall records one DeleteMessages call.
type DeleteCall struct {
	Folder string
	Seqs   []uint32
}

// FetchCall records one FetchMetadata call.
type FetchCall struct {
	Folder string
	Seqs   []uint32
}

// FakeMailbox is an in-memory remote.Mailbox. It records every mutating or
// fetching call and can be told to return shapeless responses.
type FakeMailbox struct {
	mu       sync.Mutex
	folders  map[string][]FakeMessage
	order    []string
	selected string
	flagged  map[string]map[uint32]bool

	// badFetches is the number of upcoming fetches that drop the size item
	// of their first message.
	badFetches int

	// sizeless holds seqs whose size item is never returned.
	sizeless map[uint32]bool

	// Errors injected per capability. They are returned on every call until
	// cleared.
	FetchErr  error
	DeleteErr error
	SelectErr error

	// Calls lists every capability call in order, as "op" or "op:folder".
	Calls []string

	Selects  []string
	Fetches  []FetchCall
	Deletes  []DeleteCall
	Expunges []string
}

var _ remote.Mailbox = (*FakeMailbox)(nil)

// NewFakeMailbox returns an empty mailbox.
func NewFakeMailbox() *FakeMailbox {
	return &FakeMailbox{
		folders: make(map[string][]FakeMessage),
		flagged: make(map[string]map[uint32]bool),
	}
}

// AddFolder creates folder if needed and appends msgs to it.
func (f *FakeMailbox) AddFolder(folder string, msgs ...FakeMessage) *FakeMailbox {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.folders[folder]; !ok {
		f.order = append(f.order, folder)
	}
	f.folders[folder] = append(f.folders[folder], msgs...)
	return f
}

// FailNextFetches makes the next n fetches return a message without a size.
func (f *FakeMailbox) FailNextFetches(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badFetches = n
}

// OmitSize makes every fetch leave out the size of seq.
func (f *FakeMailbox) OmitSize(seq uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sizeless == nil {
		f.sizeless = make(map[uint32]bool)
	}
	f.sizeless[seq] = true
}

// Messages returns what is currently stored in folder.
func (f *FakeMailbox) Messages(folder string) []FakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.folders[folder])
}

// ListFolders implements remote.Mailbox.
func (f *FakeMailbox) ListFolders(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "list")
	return slices.Clone(f.order), nil
}

// SelectFolder implements remote.Mailbox.
func (f *FakeMailbox) SelectFolder(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SelectErr != nil {
		return f.SelectErr
	}
	if _, ok := f.folders[name]; !ok {
		return fmt.Errorf("no such folder %q", name)
	}
	f.selected = name
	f.Selects = append(f.Selects, name)
	f.Calls = append(f.Calls, "select:"+name)
	return nil
}

// ListSequenceNumbers implements remote.Mailbox.
func (f *FakeMailbox) ListSequenceNumbers(ctx context.Context) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.selected == "" {
		return nil, fmt.Errorf("no folder selected")
	}
	msgs := f.folders[f.selected]
	seqs := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		seqs = append(seqs, m.Seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

// FetchMetadata implements remote.Mailbox. Unknown seqs are left out of
// the response.
func (f *FakeMailbox) FetchMetadata(
	ctx context.Context,
	seqs []uint32,
	fields []remote.FetchField,
) ([]remote.FetchedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.selected == "" {
		return nil, fmt.Errorf("no folder selected")
	}
	f.Fetches = append(f.Fetches, FetchCall{Folder: f.selected, Seqs: slices.Clone(seqs)})
	f.Calls = append(f.Calls, "fetch:"+f.selected)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}

	bad := f.badFetches > 0
	if bad {
		f.badFetches--
	}

	var out []remote.FetchedMessage
	for _, seq := range seqs {
		idx := slices.IndexFunc(f.folders[f.selected], func(m FakeMessage) bool { return m.Seq == seq })
		if idx < 0 {
			continue
		}
		m := f.folders[f.selected][idx]

		fm := remote.FetchedMessage{Seq: seq}
		if slices.Contains(fields, remote.FieldEnvelope) {
			fm.Envelope = &remote.Envelope{Subject: m.Subject, MessageID: m.MessageID}
		}
		if slices.Contains(fields, remote.FieldInternalDate) {
			date := m.Date
			fm.InternalDate = &date
		}
		if slices.Contains(fields, remote.FieldSize) && !(bad && len(out) == 0) && !f.sizeless[seq] {
			size := m.Size
			fm.Size = &size
		}
		out = append(out, fm)
	}
	return out, nil
}

// DeleteMessages implements remote.Mailbox. Messages are removed only on
// ExpungeFolder.
func (f *FakeMailbox) DeleteMessages(ctx context.Context, seqs []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.selected == "" {
		return fmt.Errorf("no folder selected")
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deletes = append(f.Deletes, DeleteCall{Folder: f.selected, Seqs: slices.Clone(seqs)})
	f.Calls = append(f.Calls, "delete:"+f.selected)
	if f.flagged[f.selected] == nil {
		f.flagged[f.selected] = make(map[uint32]bool)
	}
	for _, seq := range seqs {
		f.flagged[f.selected][seq] = true
	}
	return nil
}

// ExpungeFolder implements remote.Mailbox. It drops every message deleted
// in the selected folder and renumbers the rest from 1.
func (f *FakeMailbox) ExpungeFolder(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.selected == "" {
		return fmt.Errorf("no folder selected")
	}

	deleted := f.flagged[f.selected]
	delete(f.flagged, f.selected)

	var kept []FakeMessage
	for _, m := range f.folders[f.selected] {
		if deleted[m.Seq] {
			continue
		}
		m.Seq = uint32(len(kept) + 1)
		kept = append(kept, m)
	}
	f.folders[f.selected] = kept
	f.Expunges = append(f.Expunges, f.selected)
	f.Calls = append(f.Calls, "expunge:"+f.selected)
	return nil
}
