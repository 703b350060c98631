package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/imap-dedup/internal/remote"
)

// BadFetchError means the server answered a metadata fetch without some of
// the requested items. The whole chunk response is distrusted.
type BadFetchError struct {
	Folder  string
	Seq     uint32
	Missing []remote.FetchField
}

func (e *BadFetchError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("bad fetch in %s: seq %d is missing %s", e.Folder, e.Seq, strings.Join(names, ", "))
}

// IsBadFetch reports whether err is or wraps a BadFetchError.
func IsBadFetch(err error) bool {
	var bad *BadFetchError
	return errors.As(err, &bad)
}

// ChunkFailedError is returned when a chunk could not be loaded. Nothing
// from the chunk was committed.
type ChunkFailedError struct {
	Folder   string
	StartSeq uint32
	Attempts int
	Err      error
}

func (e *ChunkFailedError) Error() string {
	return fmt.Sprintf("loading %s from seq %d failed after %d attempt(s): %v",
		e.Folder, e.StartSeq, e.Attempts, e.Err)
}

func (e *ChunkFailedError) Unwrap() error {
	return e.Err
}
