package editor

import "github.com/stepseq/stepseq"

// Playlist returns the Playlist view of the model, containing methods to
// arrange patterns into the playlist grid.
func (m *Model) Playlist() *PlaylistModel { return (*PlaylistModel)(m) }

type PlaylistModel Model

type playlistEdit struct {
	m *PlaylistModel
	f func(stepseq.PlaylistState) stepseq.PlaylistState
}

func (e playlistEdit) Enabled() bool {
	s := e.m.history.current().Playlist
	return !e.f(s).Equal(s)
}

func (e playlistEdit) Do() {
	(*Model)(e.m).commit(PlaylistScope, func(s stepseq.Snapshot) stepseq.Snapshot {
		s.Playlist = e.f(s.Playlist)
		return s
	})
}

func (m *PlaylistModel) edit(f func(stepseq.PlaylistState) stepseq.PlaylistState) Action {
	return MakeAction(playlistEdit{m: m, f: f})
}

// State returns a copy of the playlist domain.
func (m *PlaylistModel) State() stepseq.PlaylistState { return m.history.current().Playlist.Copy() }

// SelectedPattern returns the pattern that Place uses when not given one. The
// selection is not versioned: undo and redo never change it.
func (m *PlaylistModel) SelectedPattern() stepseq.PatternID { return m.selected }

// SelectPattern sets the selected pattern. Selecting a pattern that does not
// exist, or NoPattern, clears the selection.
func (m *PlaylistModel) SelectPattern(id stepseq.PatternID) {
	if !(*Model)(m).patternExists(id) {
		id = stepseq.NoPattern
	}
	m.selected = id
}

// Place returns an Action to write a pattern reference into a slot. With
// NoPattern the selected pattern is placed; with nothing selected the action
// is disabled.
func (m *PlaylistModel) Place(row, col int, pattern stepseq.PatternID) Action {
	return m.edit(func(s stepseq.PlaylistState) stepseq.PlaylistState {
		p := pattern
		if p == stepseq.NoPattern {
			p = m.selected
		}
		return s.PlacePattern(row, col, p)
	})
}

// Clear returns an Action to empty a slot.
func (m *PlaylistModel) Clear(row, col int) Action {
	return m.edit(func(s stepseq.PlaylistState) stepseq.PlaylistState { return s.ClearCell(row, col) })
}

// ClearAll returns an Action to empty the whole playlist.
func (m *PlaylistModel) ClearAll() Action {
	return m.edit(stepseq.PlaylistState.Clear)
}

// RenameTrack returns an Action to rename a track.
func (m *PlaylistModel) RenameTrack(track int, name string) Action {
	return m.edit(func(s stepseq.PlaylistState) stepseq.PlaylistState { return s.RenameTrack(track, name) })
}

// SetDimensions returns an Action to rebuild the playlist to width x height.
func (m *PlaylistModel) SetDimensions(width, height int) Action {
	return m.edit(func(s stepseq.PlaylistState) stepseq.PlaylistState { return s.SetDimensions(width, height) })
}

// RemoveOrphans returns an Action to empty the slots referring to patterns
// that were deleted.
func (m *PlaylistModel) RemoveOrphans() Action {
	return m.edit(func(s stepseq.PlaylistState) stepseq.PlaylistState {
		return s.RemoveReferences((*Model)(m).patternExists)
	})
}

// Orphans returns the number of slots referring to patterns that do not
// exist.
func (m *PlaylistModel) Orphans() int {
	ret := 0
	for _, t := range m.history.current().Playlist.Tracks {
		for _, v := range t.Grid {
			if v != stepseq.NoPattern && !(*Model)(m).patternExists(v) {
				ret++
			}
		}
	}
	return ret
}

// Width and Height return Ints controlling the playlist dimensions one at a
// time.
func (m *PlaylistModel) Width() Int  { return MakeInt((*playlistWidth)(m)) }
func (m *PlaylistModel) Height() Int { return MakeInt((*playlistHeight)(m)) }

type (
	playlistWidth  PlaylistModel
	playlistHeight PlaylistModel
)

func (v *playlistWidth) Value() int { return v.history.current().Playlist.Width }
func (v *playlistWidth) SetValue(value int) bool {
	return (*PlaylistModel)(v).SetDimensions(value, v.history.current().Playlist.Height).Do()
}
func (v *playlistWidth) Range() RangeInclusive { return RangeInclusive{1, stepseq.MaxWidth} }

func (v *playlistHeight) Value() int { return v.history.current().Playlist.Height }
func (v *playlistHeight) SetValue(value int) bool {
	return (*PlaylistModel)(v).SetDimensions(v.history.current().Playlist.Width, value).Do()
}
func (v *playlistHeight) Range() RangeInclusive { return RangeInclusive{1, stepseq.MaxWidth} }

// TrackName returns a String controlling the name of a track.
func (m *PlaylistModel) TrackName(track int) String {
	return MakeString(trackName{m: m, track: track})
}

type trackName struct {
	m     *PlaylistModel
	track int
}

func (v trackName) Value() string {
	for _, t := range v.m.history.current().Playlist.Tracks {
		if t.ID == v.track {
			return t.Name
		}
	}
	return ""
}

func (v trackName) SetValue(value string) bool { return v.m.RenameTrack(v.track, value).Do() }
