package stepseq

import "slices"

type (
	// Slots is the row of pattern references of one playlist track, in practice
	// just a slice of PatternIDs, but Get returns NoPattern for indices out of
	// bounds of the slice.
	Slots []PatternID

	// PlaylistTrack is one row of the arrangement. ID is the row index of the
	// track.
	PlaylistTrack struct {
		ID   int
		Name string
		Grid Slots `yaml:",flow"`
	}
)

// Get returns the value at index; or NoPattern if the index is out of range
func (s Slots) Get(index int) PatternID {
	if index < 0 || index >= len(s) {
		return NoPattern
	}
	return s[index]
}

func (s Slots) Copy() Slots {
	if s == nil {
		return nil
	}
	ret := make(Slots, len(s))
	copy(ret, s)
	return ret
}

func (t *PlaylistTrack) Copy() PlaylistTrack {
	return PlaylistTrack{ID: t.ID, Name: t.Name, Grid: t.Grid.Copy()}
}

func (t *PlaylistTrack) Equal(o *PlaylistTrack) bool {
	return t.ID == o.ID && t.Name == o.Name && slices.Equal(t.Grid, o.Grid)
}
