package stepseq

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// Project is the saved form of a project. The field names follow the
	// project files of the browser editor so that its saves load as is.
	// Every field is optional: State() repairs whatever is missing.
	Project struct {
		Meta      ProjectMeta    `json:"meta" yaml:"meta"`
		Channels  *ChannelData   `json:"channels,omitempty" yaml:"channels,omitempty"`
		Playlist  *PlaylistData  `json:"playlist,omitempty" yaml:"playlist,omitempty"`
		Transport *TransportData `json:"transport,omitempty" yaml:"transport,omitempty"`
	}

	ProjectMeta struct {
		Version int `json:"version" yaml:"version"`
	}

	ChannelData struct {
		CurrentPatternID *PatternID    `json:"currentPatternID,omitempty" yaml:"currentPatternID,omitempty"`
		Width            *int          `json:"width,omitempty" yaml:"width,omitempty"`
		Patterns         []PatternData `json:"patterns" yaml:"patterns"`
		NextChannelID    *ChannelID    `json:"nextChannelID,omitempty" yaml:"nextChannelID,omitempty"`
		NextPatternID    *PatternID    `json:"nextPatternID,omitempty" yaml:"nextPatternID,omitempty"`
	}

	PatternData struct {
		ID       PatternID         `json:"id" yaml:"id"`
		Name     string            `json:"name" yaml:"name"`
		Channels []ChannelSaveData `json:"channels" yaml:"channels"`
	}

	ChannelSaveData struct {
		ID        ChannelID `json:"id" yaml:"id"`
		Name      string    `json:"name" yaml:"name"`
		Grid      []bool    `json:"grid" yaml:"grid,flow"`
		SampleURL *string   `json:"sampleUrl" yaml:"sampleUrl"`
	}

	PlaylistData struct {
		Width             *int        `json:"pWidth,omitempty" yaml:"pWidth,omitempty"`
		Height            *int        `json:"pHeight,omitempty" yaml:"pHeight,omitempty"`
		SelectedPatternID *PatternID  `json:"selectedPatternId" yaml:"selectedPatternId"`
		Tracks            []TrackData `json:"playlistGrid" yaml:"playlistGrid"`
	}

	TrackData struct {
		ID   int          `json:"id" yaml:"id"`
		Name string       `json:"name" yaml:"name"`
		Grid []*PatternID `json:"grid" yaml:"grid,flow"`
	}
)

const ProjectVersion = 1

// ParseProject decodes a project, trying JSON first and YAML second.
func ParseProject(b []byte) (Project, error) {
	var p Project
	errJSON := json.Unmarshal(b, &p)
	if errJSON == nil {
		return p, nil
	}
	p = Project{}
	errYaml := yaml.Unmarshal(b, &p)
	if errYaml == nil {
		return p, nil
	}
	return Project{}, fmt.Errorf("could not parse project: %w", errors.Join(errJSON, errYaml))
}

// NewProject captures a snapshot, plus the ephemeral selected pattern of the
// playlist and the transport settings, as a Project.
func NewProject(s Snapshot, selected PatternID, t Transport) Project {
	playlist := s.Playlist.Data()
	if selected != NoPattern {
		playlist.SelectedPatternID = &selected
	}
	channels := s.Channels.Data()
	transport := t.Data()
	return Project{Meta: ProjectMeta{Version: ProjectVersion}, Channels: &channels, Playlist: &playlist, Transport: &transport}
}

// Snapshot repairs the project data into a Snapshot that satisfies every
// invariant. It never fails: anything unusable is replaced by defaults.
func (p Project) Snapshot() Snapshot {
	var channels ChannelData
	if p.Channels != nil {
		channels = *p.Channels
	}
	var playlist PlaylistData
	if p.Playlist != nil {
		playlist = *p.Playlist
	}
	return Snapshot{Channels: channels.State(), Playlist: playlist.State()}
}

// TransportState repairs the saved transport settings; a project without them
// gets DefaultTransport.
func (p Project) TransportState() Transport {
	if p.Transport == nil {
		return DefaultTransport()
	}
	return p.Transport.State()
}

// SelectedPattern returns the selected playlist pattern saved with the
// project, or NoPattern.
func (p Project) SelectedPattern() PatternID {
	if p.Playlist == nil || p.Playlist.SelectedPatternID == nil || *p.Playlist.SelectedPatternID < NoPattern {
		return NoPattern
	}
	return *p.Playlist.SelectedPatternID
}

// Data returns the plain saved form of the channel domain.
func (s ChannelState) Data() ChannelData {
	width, current := s.Width, s.CurrentPatternID
	nextChannel, nextPattern := s.NextChannelID, s.NextPatternID
	patterns := make([]PatternData, len(s.Patterns))
	for i, p := range s.Patterns {
		channels := make([]ChannelSaveData, len(p.Channels))
		for j, c := range p.Channels {
			channels[j] = ChannelSaveData{ID: c.ID, Name: c.Name, Grid: c.Grid.Copy()}
			if c.Sample != "" {
				url := string(c.Sample)
				channels[j].SampleURL = &url
			}
		}
		patterns[i] = PatternData{ID: p.ID, Name: p.Name, Channels: channels}
	}
	return ChannelData{
		CurrentPatternID: &current,
		Width:            &width,
		Patterns:         patterns,
		NextChannelID:    &nextChannel,
		NextPatternID:    &nextPattern,
	}
}

// State repairs the saved channel domain: a missing or invalid width becomes
// DefaultWidth, grids are fitted to the width, every pattern gets the channels
// of the first pattern in the same order, duplicate ids and ids above MaxID
// are dropped and missing channels are filled in from the default kit up to MinChannels. With
// no usable pattern at all, the default patterns are used.
func (d ChannelData) State() ChannelState {
	width := DefaultWidth
	if d.Width != nil && *d.Width >= 1 && *d.Width <= MaxWidth {
		width = *d.Width
	}
	var patterns []PatternData
	seenPatterns := map[PatternID]bool{}
	for _, p := range d.Patterns {
		if p.ID <= NoPattern || p.ID > MaxID || seenPatterns[p.ID] {
			continue
		}
		seenPatterns[p.ID] = true
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		ret := DefaultChannelState().ResizeWidth(width)
		if d.CurrentPatternID != nil {
			ret = ret.SelectPattern(*d.CurrentPatternID)
		}
		return ret
	}
	// the first pattern decides which channels exist and in which order
	var kit []Channel
	seenChannels := map[ChannelID]bool{}
	for _, c := range patterns[0].Channels {
		if c.ID < 0 || c.ID > MaxID || seenChannels[c.ID] {
			continue
		}
		seenChannels[c.ID] = true
		kit = append(kit, c.channel(width))
	}
	for i := 0; len(kit) < MinChannels && i < len(defaultChannels); i++ {
		if id := ChannelID(i); !seenChannels[id] {
			seenChannels[id] = true
			kit = append(kit, Channel{ID: id, Name: defaultChannels[i].name, Grid: make(Grid, width), Sample: defaultChannels[i].sample})
		}
	}
	ret := ChannelState{Width: width, Patterns: make([]Pattern, len(patterns))}
	for i, p := range patterns {
		out := Pattern{ID: p.ID, Name: p.Name, Channels: make([]Channel, len(kit))}
		for j, k := range kit {
			out.Channels[j] = Channel{ID: k.ID, Name: k.Name, Grid: make(Grid, width), Sample: k.Sample}
			for _, c := range p.Channels {
				if c.ID == k.ID {
					out.Channels[j] = c.channel(width)
					break
				}
			}
		}
		if out.Name == "" {
			out.Name = fmt.Sprintf("P%d", p.ID)
		}
		ret.Patterns[i] = out
	}
	ret.CurrentPatternID = ret.Patterns[0].ID
	if d.CurrentPatternID != nil && seenPatterns[*d.CurrentPatternID] {
		ret.CurrentPatternID = *d.CurrentPatternID
	}
	for _, k := range kit {
		ret.NextChannelID = max(ret.NextChannelID, k.ID+1)
	}
	if d.NextChannelID != nil && *d.NextChannelID <= MaxID {
		ret.NextChannelID = max(ret.NextChannelID, *d.NextChannelID)
	}
	for _, p := range ret.Patterns {
		ret.NextPatternID = max(ret.NextPatternID, p.ID+1)
	}
	if d.NextPatternID != nil && *d.NextPatternID <= MaxID {
		ret.NextPatternID = max(ret.NextPatternID, *d.NextPatternID)
	}
	return ret
}

func (c ChannelSaveData) channel(width int) Channel {
	ret := Channel{ID: c.ID, Name: c.Name, Grid: Grid(c.Grid).Resized(width)}
	if c.SampleURL != nil {
		ret.Sample = SampleRef(*c.SampleURL)
	}
	return ret
}

// Data returns the plain saved form of the playlist domain.
func (s PlaylistState) Data() PlaylistData {
	width, height := s.Width, s.Height
	tracks := make([]TrackData, len(s.Tracks))
	for i, t := range s.Tracks {
		grid := make([]*PatternID, len(t.Grid))
		for j, v := range t.Grid {
			if v != NoPattern {
				grid[j] = &v
			}
		}
		tracks[i] = TrackData{ID: t.ID, Name: t.Name, Grid: grid}
	}
	return PlaylistData{Width: &width, Height: &height, Tracks: tracks}
}

// State repairs the saved playlist domain. Missing or invalid dimensions become
// the defaults and the saved tracks are fitted to the grid by position.
func (d PlaylistData) State() PlaylistState {
	width, height := DefaultPlaylistWidth, DefaultPlaylistHeight
	if d.Width != nil && *d.Width >= 1 && *d.Width <= MaxWidth {
		width = *d.Width
	}
	if d.Height != nil && *d.Height >= 1 && *d.Height <= MaxWidth {
		height = *d.Height
	}
	saved := PlaylistState{Tracks: make([]PlaylistTrack, len(d.Tracks))}
	for i, t := range d.Tracks {
		grid := make(Slots, len(t.Grid))
		for j, v := range t.Grid {
			if v != nil && *v > NoPattern {
				grid[j] = *v
			}
		}
		name := t.Name
		if name == "" {
			name = defaultTrackName(i)
		}
		saved.Tracks[i] = PlaylistTrack{ID: i, Name: name, Grid: grid}
	}
	return saved.SetDimensions(width, height)
}
