package editor

import (
	"slices"

	"github.com/stepseq/stepseq"
)

type (
	// History is a bounded, linear log of snapshots and a cursor into it. The
	// entries up to the cursor are the past and the present; the entries after
	// the cursor are the future that can be redone. A commit always destroys
	// the future: there is no branching.
	//
	// The log never holds more than max entries. When a commit would exceed
	// it, the oldest entry is dropped for good.
	//
	// Every entry is a deep copy owned by the History, and Current() returns a
	// copy again, so no two snapshots ever share mutable storage.
	History struct {
		log    []stepseq.Snapshot
		cursor int
		max    int
	}

	// Scope tells which domain of a snapshot a commit targets.
	Scope int
)

const (
	ChannelScope Scope = iota
	PlaylistScope
	// TransportScope marks changes of the transport settings. They are not
	// versioned: History.Commit refuses this scope.
	TransportScope
)

// Scopes lists every scope, in the order changes are published.
var Scopes = []Scope{ChannelScope, PlaylistScope}

const DefaultMaxHistory = 100

func (s Scope) String() string {
	switch s {
	case ChannelScope:
		return "channel"
	case PlaylistScope:
		return "playlist"
	case TransportScope:
		return "transport"
	}
	return "unknown"
}

// NewHistory returns a History holding only the initial snapshot. max < 1
// means DefaultMaxHistory.
func NewHistory(initial stepseq.Snapshot, max int) *History {
	if max < 1 {
		max = DefaultMaxHistory
	}
	return &History{log: []stepseq.Snapshot{initial.Copy()}, max: max}
}

// Commit applies update to a copy of the current snapshot and keeps only the
// part of the result that belongs to scope; the other domains are carried
// over from the current snapshot. The future is truncated, the new snapshot
// appended and the cursor moved to it. If the result equals the current
// snapshot, nothing happens and Commit returns false.
func (h *History) Commit(scope Scope, update func(stepseq.Snapshot) stepseq.Snapshot) bool {
	cur := h.log[h.cursor]
	res := update(cur.Copy())
	next := cur.Copy()
	switch scope {
	case ChannelScope:
		next.Channels = res.Channels.Copy()
	case PlaylistScope:
		next.Playlist = res.Playlist.Copy()
	default:
		return false
	}
	if next.Equal(cur) {
		return false
	}
	clear(h.log[h.cursor+1:])
	h.log = append(h.log[:h.cursor+1], next)
	if over := len(h.log) - h.max; over > 0 {
		h.log = slices.Delete(h.log, 0, over)
	}
	h.cursor = len(h.log) - 1
	return true
}

// Undo moves the cursor one entry back, unless it is at the oldest entry.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	return true
}

// Redo moves the cursor one entry forward, unless it is at the newest entry.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	return true
}

// Reset replaces the whole log with the single snapshot s. It cannot be
// undone.
func (h *History) Reset(s stepseq.Snapshot) {
	clear(h.log)
	h.log = append(h.log[:0], s.Copy())
	h.cursor = 0
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.log)-1 }

// Current returns a copy of the snapshot at the cursor.
func (h *History) Current() stepseq.Snapshot { return h.log[h.cursor].Copy() }

func (h *History) Len() int    { return len(h.log) }
func (h *History) Cursor() int { return h.cursor }
func (h *History) Max() int    { return h.max }

// current returns the snapshot at the cursor without copying. The caller must
// not modify it.
func (h *History) current() stepseq.Snapshot { return h.log[h.cursor] }

// Samples yields the sample references of every snapshot in the log, past and
// future alike.
func (h *History) Samples(yield func(stepseq.SampleRef) bool) {
	for _, s := range h.log {
		cont := true
		s.Samples(func(ref stepseq.SampleRef) bool {
			cont = yield(ref)
			return cont
		})
		if !cont {
			return
		}
	}
}
