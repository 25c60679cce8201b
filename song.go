package stepseq

import (
	"errors"
	"fmt"
	"math"
)

type (
	// ChannelState is the channel domain: all the patterns of the project and
	// the global step count shared by every pattern. CurrentPatternID selects
	// the pattern being edited; it is navigation rather than structure, but it
	// belongs to the saved project and is thus versioned.
	//
	// NextChannelID and NextPatternID are the id allocators. They only ever
	// grow, so an id is never handed out twice within a project.
	ChannelState struct {
		Width            int
		Patterns         []Pattern
		CurrentPatternID PatternID
		NextChannelID    ChannelID
		NextPatternID    PatternID
	}

	// PlaylistState is the playlist domain: Height tracks, each with Width
	// slots referencing patterns of the channel domain.
	PlaylistState struct {
		Width  int
		Height int
		Tracks []PlaylistTrack
	}

	// Snapshot is the composite value of all the domains at one point in
	// history.
	Snapshot struct {
		Channels ChannelState
		Playlist PlaylistState
	}
)

const (
	DefaultWidth          = 16
	DefaultPlaylistWidth  = 8
	DefaultPlaylistHeight = 8

	// MinChannels is the number of channels a pattern never goes below.
	MinChannels = 2
	// MaxWidth bounds both the pattern width and the playlist dimensions.
	MaxWidth = 256
	// MaxID is the largest channel or pattern id ever allocated; once an
	// allocator passes it, nothing more can be added.
	MaxID = math.MaxInt32 - 1
)

var ErrInvariant = errors.New("invariant violated")

var defaultChannels = []struct {
	name   string
	sample SampleRef
}{
	{"Kick", "/Audio/Drums/Progressive_Kick.wav"},
	{"Snare", "/Audio/Drums/VEC2_Snares_020.wav"},
	{"Hihat", "/Audio/Drums/VEE_Open_Hihat_06.wav"},
	{"Clap", "/Audio/Drums/VEH3_Claps_011.wav"},
}

// DefaultSample returns the sample a channel returns to when samples are
// reset. Only the channels of the default kit have one.
func DefaultSample(id ChannelID) SampleRef {
	if id < 0 || int(id) >= len(defaultChannels) {
		return ""
	}
	return defaultChannels[id].sample
}

// DefaultChannelState builds the channel domain of a new project: two patterns
// P1 and P2 with the default four channel kit and empty grids.
func DefaultChannelState() ChannelState {
	channels := make([]Channel, len(defaultChannels))
	for i, c := range defaultChannels {
		channels[i] = Channel{ID: ChannelID(i), Name: c.name, Grid: make(Grid, DefaultWidth), Sample: c.sample}
	}
	p1 := Pattern{ID: 1, Name: "P1", Channels: channels}
	p2 := p1.Copy()
	p2.ID, p2.Name = 2, "P2"
	return ChannelState{
		Width:            DefaultWidth,
		Patterns:         []Pattern{p1, p2},
		CurrentPatternID: 1,
		NextChannelID:    ChannelID(len(channels)),
		NextPatternID:    3,
	}
}

// DefaultPlaylistState builds the empty 8x8 playlist of a new project.
func DefaultPlaylistState() PlaylistState {
	return PlaylistState{}.SetDimensions(DefaultPlaylistWidth, DefaultPlaylistHeight)
}

func DefaultSnapshot() Snapshot {
	return Snapshot{Channels: DefaultChannelState(), Playlist: DefaultPlaylistState()}
}

// Copy makes a deep copy of a ChannelState.
func (s ChannelState) Copy() ChannelState {
	patterns := make([]Pattern, len(s.Patterns))
	for i, p := range s.Patterns {
		patterns[i] = p.Copy()
	}
	s.Patterns = patterns
	return s
}

func (s ChannelState) Equal(o ChannelState) bool {
	if s.Width != o.Width || s.CurrentPatternID != o.CurrentPatternID ||
		s.NextChannelID != o.NextChannelID || s.NextPatternID != o.NextPatternID ||
		len(s.Patterns) != len(o.Patterns) {
		return false
	}
	for i := range s.Patterns {
		if !s.Patterns[i].Equal(&o.Patterns[i]) {
			return false
		}
	}
	return true
}

// Copy makes a deep copy of a PlaylistState.
func (s PlaylistState) Copy() PlaylistState {
	tracks := make([]PlaylistTrack, len(s.Tracks))
	for i, t := range s.Tracks {
		tracks[i] = t.Copy()
	}
	s.Tracks = tracks
	return s
}

func (s PlaylistState) Equal(o PlaylistState) bool {
	if s.Width != o.Width || s.Height != o.Height || len(s.Tracks) != len(o.Tracks) {
		return false
	}
	for i := range s.Tracks {
		if !s.Tracks[i].Equal(&o.Tracks[i]) {
			return false
		}
	}
	return true
}

// Copy makes a deep copy of a Snapshot.
func (s Snapshot) Copy() Snapshot {
	return Snapshot{Channels: s.Channels.Copy(), Playlist: s.Playlist.Copy()}
}

func (s Snapshot) Equal(o Snapshot) bool {
	return s.Channels.Equal(o.Channels) && s.Playlist.Equal(o.Playlist)
}

// PatternIndex returns the index of the pattern with the given id, or -1.
func (s ChannelState) PatternIndex(id PatternID) int {
	for i, p := range s.Patterns {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Pattern returns the pattern with the given id.
func (s ChannelState) Pattern(id PatternID) (Pattern, bool) {
	if i := s.PatternIndex(id); i >= 0 {
		return s.Patterns[i], true
	}
	return Pattern{}, false
}

// CurrentPattern returns the pattern selected by CurrentPatternID.
func (s ChannelState) CurrentPattern() (Pattern, bool) {
	return s.Pattern(s.CurrentPatternID)
}

// NumChannels returns the number of channels per pattern.
func (s ChannelState) NumChannels() int {
	if len(s.Patterns) == 0 {
		return 0
	}
	return len(s.Patterns[0].Channels)
}

// Validate checks the structural invariants of the channel domain: uniform
// grid widths, the same ordered channel ids in every pattern, unique ids, the
// channel floor and a current pattern that exists.
func (s ChannelState) Validate() error {
	if len(s.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvariant)
	}
	first := s.Patterns[0].Channels
	if len(first) < MinChannels {
		return fmt.Errorf("%w: %d channels, want at least %d", ErrInvariant, len(first), MinChannels)
	}
	patternIDs := make(map[PatternID]bool, len(s.Patterns))
	for _, p := range s.Patterns {
		if patternIDs[p.ID] {
			return fmt.Errorf("%w: duplicate pattern id %d", ErrInvariant, p.ID)
		}
		if p.ID <= NoPattern || p.ID >= s.NextPatternID {
			return fmt.Errorf("%w: pattern id %d outside allocated range", ErrInvariant, p.ID)
		}
		patternIDs[p.ID] = true
		if len(p.Channels) != len(first) {
			return fmt.Errorf("%w: pattern %d has %d channels, want %d", ErrInvariant, p.ID, len(p.Channels), len(first))
		}
		channelIDs := make(map[ChannelID]bool, len(p.Channels))
		for i, c := range p.Channels {
			if c.ID != first[i].ID {
				return fmt.Errorf("%w: pattern %d channel %d has id %d, want %d", ErrInvariant, p.ID, i, c.ID, first[i].ID)
			}
			if channelIDs[c.ID] {
				return fmt.Errorf("%w: duplicate channel id %d", ErrInvariant, c.ID)
			}
			if c.ID < 0 || c.ID >= s.NextChannelID {
				return fmt.Errorf("%w: channel id %d outside allocated range", ErrInvariant, c.ID)
			}
			channelIDs[c.ID] = true
			if len(c.Grid) != s.Width {
				return fmt.Errorf("%w: pattern %d channel %d grid length %d, want %d", ErrInvariant, p.ID, c.ID, len(c.Grid), s.Width)
			}
		}
	}
	if !patternIDs[s.CurrentPatternID] {
		return fmt.Errorf("%w: current pattern %d does not exist", ErrInvariant, s.CurrentPatternID)
	}
	return nil
}

// Validate checks that the playlist has Height tracks of Width slots with the
// row indices as ids.
func (s PlaylistState) Validate() error {
	if len(s.Tracks) != s.Height {
		return fmt.Errorf("%w: %d tracks, want %d", ErrInvariant, len(s.Tracks), s.Height)
	}
	for i, t := range s.Tracks {
		if t.ID != i {
			return fmt.Errorf("%w: track %d has id %d", ErrInvariant, i, t.ID)
		}
		if len(t.Grid) != s.Width {
			return fmt.Errorf("%w: track %d grid length %d, want %d", ErrInvariant, i, len(t.Grid), s.Width)
		}
	}
	return nil
}

func (s Snapshot) Validate() error {
	if err := s.Channels.Validate(); err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	if err := s.Playlist.Validate(); err != nil {
		return fmt.Errorf("playlist: %w", err)
	}
	return nil
}

// Samples yields every sample reference held by the snapshot. A reference
// shared by several patterns is yielded once per pattern.
func (s Snapshot) Samples(yield func(SampleRef) bool) {
	for _, p := range s.Channels.Patterns {
		for _, c := range p.Channels {
			if c.Sample != "" && !yield(c.Sample) {
				return
			}
		}
	}
}
