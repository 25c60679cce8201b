package stepseq

import "fmt"

// PlacePattern writes a pattern reference into one slot. Placing NoPattern or
// placing outside the grid does nothing.
func (s PlaylistState) PlacePattern(row, col int, pattern PatternID) PlaylistState {
	if pattern <= NoPattern {
		return s
	}
	return s.setSlot(row, col, pattern)
}

// ClearCell empties one slot.
func (s PlaylistState) ClearCell(row, col int) PlaylistState {
	return s.setSlot(row, col, NoPattern)
}

func (s PlaylistState) setSlot(row, col int, pattern PatternID) PlaylistState {
	if row < 0 || row >= len(s.Tracks) || col < 0 || col >= len(s.Tracks[row].Grid) {
		return s
	}
	if s.Tracks[row].Grid[col] == pattern {
		return s
	}
	ret := s.Copy()
	ret.Tracks[row].Grid[col] = pattern
	return ret
}

// RenameTrack renames the track with the given id.
func (s PlaylistState) RenameTrack(track int, name string) PlaylistState {
	for i, t := range s.Tracks {
		if t.ID != track {
			continue
		}
		if t.Name == name {
			return s
		}
		ret := s.Copy()
		ret.Tracks[i].Name = name
		return ret
	}
	return s
}

// SetDimensions rebuilds the grid to width x height. The mapping is by
// position: a track keeps its name and a slot its value only when the same
// (row, col) exists in the new grid. New tracks get default names and new
// slots are empty.
func (s PlaylistState) SetDimensions(width, height int) PlaylistState {
	if width < 1 || height < 1 || width > MaxWidth || height > MaxWidth {
		return s
	}
	if width == s.Width && height == s.Height && s.Validate() == nil {
		return s
	}
	tracks := make([]PlaylistTrack, height)
	for r := range tracks {
		t := PlaylistTrack{ID: r, Name: defaultTrackName(r), Grid: make(Slots, width)}
		if r < len(s.Tracks) {
			t.Name = s.Tracks[r].Name
			copy(t.Grid, s.Tracks[r].Grid)
		}
		tracks[r] = t
	}
	return PlaylistState{Width: width, Height: height, Tracks: tracks}
}

// Clear empties every slot and gives every track its default name back.
func (s PlaylistState) Clear() PlaylistState {
	ret := PlaylistState{}.SetDimensions(s.Width, s.Height)
	if ret.Equal(s) {
		return s
	}
	return ret
}

// RemoveReferences empties every slot whose pattern keep does not accept.
func (s PlaylistState) RemoveReferences(keep func(PatternID) bool) PlaylistState {
	ret := s.Copy()
	changed := false
	for i := range ret.Tracks {
		for j, v := range ret.Tracks[i].Grid {
			if v != NoPattern && !keep(v) {
				ret.Tracks[i].Grid[j] = NoPattern
				changed = true
			}
		}
	}
	if !changed {
		return s
	}
	return ret
}

// References returns how many slots reference the given pattern.
func (s PlaylistState) References(pattern PatternID) int {
	ret := 0
	for _, t := range s.Tracks {
		for _, v := range t.Grid {
			if v == pattern {
				ret++
			}
		}
	}
	return ret
}

func defaultTrackName(row int) string {
	return fmt.Sprintf("Track %d", row+1)
}
