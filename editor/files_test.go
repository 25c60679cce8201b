package editor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stepseq/stepseq"
)

func TestSaveAndOpen(t *testing.T) {
	for _, name := range []string{"song.json", "song.yml"} {
		t.Run(name, func(t *testing.T) {
			m, _ := newModel(t, 0)
			m.Channels().Toggle(1, kick, 3).Do()
			m.Channels().AddPattern().Do()
			m.Playlist().Place(2, 1, 3).Do()
			m.Playlist().SelectPattern(3)
			path := filepath.Join(t.TempDir(), name)
			if err := m.Save(path); err != nil {
				t.Fatalf("save: %v", err)
			}
			if m.ChangedSinceSave() || m.FilePath() != path {
				t.Fatalf("save did not update the file status")
			}
			want := m.Snapshot()
			o, _ := newModel(t, 0)
			if err := o.Open(path); err != nil {
				t.Fatalf("open: %v", err)
			}
			if !o.Snapshot().Equal(want) {
				t.Fatalf("opened snapshot differs from the saved one")
			}
			if o.CanUndo() || o.Playlist().SelectedPattern() != 3 {
				t.Fatalf("unexpected state after open")
			}
		})
	}
}

func TestOpenMalformed(t *testing.T) {
	m, _ := newModel(t, 0)
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("channels: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Channels().Toggle(1, kick, 0).Do()
	if err := m.Open(path); err == nil {
		t.Fatalf("expected an error")
	}
	if !m.CanUndo() {
		t.Fatalf("a failed open discarded the history")
	}
}

func TestOpenPartial(t *testing.T) {
	m, _ := newModel(t, 0)
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"playlist":{"pWidth":4}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := m.Open(path); err != nil {
		t.Fatalf("open: %v", err)
	}
	s := m.Snapshot()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Playlist.Width != 4 || s.Playlist.Height != stepseq.DefaultPlaylistHeight || s.Channels.Width != stepseq.DefaultWidth {
		t.Fatalf("unexpected repaired dimensions")
	}
}
