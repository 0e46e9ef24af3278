package driver

import "context"

// EventKind tags progress events emitted while checking.
type EventKind uint8

const (
	// EventFileStart fires when a worker picks up an input file.
	EventFileStart EventKind = iota
	// EventFileDone fires when a file's diagnostics are collected.
	EventFileDone
)

// Event is one progress update. Index and Total describe the position in the
// sorted input list; Diags and Cached are only meaningful on EventFileDone.
type Event struct {
	Kind   EventKind
	Path   string
	Index  int
	Total  int
	Diags  int
	Cached bool
}

// emit delivers an event without outliving the run: a stalled consumer
// cannot block workers past cancellation.
func emit(ctx context.Context, ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
