package editor_test

import (
	"reflect"
	"testing"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
)

func toggle(p stepseq.PatternID, c stepseq.ChannelID, i int) func(stepseq.Snapshot) stepseq.Snapshot {
	return func(s stepseq.Snapshot) stepseq.Snapshot {
		s.Channels = s.Channels.ToggleCell(p, c, i)
		return s
	}
}

func TestHistoryUndoRestoresPrevious(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	before := h.Current()
	if !h.Commit(editor.ChannelScope, toggle(1, 0, 0)) {
		t.Fatalf("commit did not change anything")
	}
	after := h.Current()
	if !h.Undo() {
		t.Fatalf("undo failed")
	}
	if got := h.Current(); !reflect.DeepEqual(got, before) {
		t.Fatalf("undo did not restore the previous snapshot")
	}
	if !h.CanRedo() {
		t.Fatalf("expected CanRedo after undo")
	}
	if !h.Redo() {
		t.Fatalf("redo failed")
	}
	if got := h.Current(); !reflect.DeepEqual(got, after) {
		t.Fatalf("redo did not restore the undone snapshot")
	}
}

func TestHistoryCommitDiscardsFuture(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	h.Commit(editor.ChannelScope, toggle(1, 0, 0))
	h.Commit(editor.ChannelScope, toggle(1, 0, 1))
	h.Undo()
	h.Commit(editor.ChannelScope, toggle(1, 1, 0))
	if h.CanRedo() {
		t.Fatalf("commit after undo left the future redoable")
	}
	if h.Len() != 3 || h.Cursor() != 2 {
		t.Fatalf("got len %d cursor %d, want 3 and 2", h.Len(), h.Cursor())
	}
	s := h.Current()
	p, _ := s.Channels.Pattern(1)
	if p.Channels[0].Grid[1] {
		t.Fatalf("the discarded commit is still visible")
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 100)
	var committed []stepseq.Snapshot
	for i := 0; i < 101; i++ {
		if !h.Commit(editor.ChannelScope, toggle(1, 0, i%16)) {
			t.Fatalf("commit %d did not change anything", i)
		}
		committed = append(committed, h.Current())
	}
	if h.Len() != 100 {
		t.Fatalf("got log length %d, want 100", h.Len())
	}
	for h.Undo() {
	}
	if got := h.Current(); !reflect.DeepEqual(got, committed[1]) {
		t.Fatalf("undoing all the way did not reach the second committed state")
	}
}

func TestHistoryScopeCarriesOtherDomain(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	before := h.Current()
	h.Commit(editor.PlaylistScope, func(s stepseq.Snapshot) stepseq.Snapshot {
		s.Channels = s.Channels.AddChannel()
		s.Playlist = s.Playlist.PlacePattern(0, 0, 1)
		return s
	})
	s := h.Current()
	if !s.Channels.Equal(before.Channels) {
		t.Fatalf("a playlist commit changed the channel domain")
	}
	if s.Playlist.Tracks[0].Grid[0] != 1 {
		t.Fatalf("the playlist commit was not applied")
	}
}

func TestHistoryNoopCommit(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	if h.Commit(editor.ChannelScope, toggle(1, 0, 99)) {
		t.Fatalf("commit of an unchanged state reported a change")
	}
	if h.Len() != 1 || h.CanUndo() {
		t.Fatalf("a no-op commit touched the log")
	}
}

func TestHistoryCurrentIsACopy(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	s := h.Current()
	s.Channels.Patterns[0].Channels[0].Grid[0] = true
	s.Playlist.Tracks[0].Grid[0] = 2
	if !h.Current().Equal(stepseq.DefaultSnapshot()) {
		t.Fatalf("modifying the returned snapshot changed the history")
	}
}

func TestHistoryReset(t *testing.T) {
	h := editor.NewHistory(stepseq.DefaultSnapshot(), 0)
	h.Commit(editor.ChannelScope, toggle(1, 0, 0))
	h.Commit(editor.ChannelScope, toggle(1, 0, 1))
	h.Undo()
	h.Reset(stepseq.DefaultSnapshot())
	if h.Len() != 1 || h.CanUndo() || h.CanRedo() {
		t.Fatalf("reset left history behind")
	}
}
