package stepseq

import (
	"fmt"
	"slices"
)

// The operations below never modify the receiver: each one works on a deep
// copy and returns it. Invalid arguments (unknown ids, indices out of range,
// edits that would break an invariant) return the receiver unchanged.

// ToggleCell flips a single step.
func (s ChannelState) ToggleCell(pattern PatternID, channel ChannelID, index int) ChannelState {
	return s.setCell(pattern, channel, index, func(v bool) bool { return !v })
}

// ClearCell turns a single step off.
func (s ChannelState) ClearCell(pattern PatternID, channel ChannelID, index int) ChannelState {
	return s.setCell(pattern, channel, index, func(bool) bool { return false })
}

// SetCell sets a single step to the given value.
func (s ChannelState) SetCell(pattern PatternID, channel ChannelID, index int, value bool) ChannelState {
	return s.setCell(pattern, channel, index, func(bool) bool { return value })
}

func (s ChannelState) setCell(pattern PatternID, channel ChannelID, index int, f func(bool) bool) ChannelState {
	p := s.PatternIndex(pattern)
	if p < 0 {
		return s
	}
	c := s.Patterns[p].ChannelIndex(channel)
	if c < 0 || index < 0 || index >= len(s.Patterns[p].Channels[c].Grid) {
		return s
	}
	ret := s.Copy()
	grid := ret.Patterns[p].Channels[c].Grid
	grid[index] = f(grid[index])
	return ret
}

// ClearPattern turns off every step of one pattern.
func (s ChannelState) ClearPattern(pattern PatternID) ChannelState {
	p := s.PatternIndex(pattern)
	if p < 0 {
		return s
	}
	ret := s.Copy()
	for i := range ret.Patterns[p].Channels {
		ret.Patterns[p].Channels[i].Grid = make(Grid, ret.Width)
	}
	return ret
}

// AddChannel appends a new empty channel to every pattern. The channel gets the
// next unused id and is named after it.
func (s ChannelState) AddChannel() ChannelState {
	if len(s.Patterns) == 0 || s.NextChannelID > MaxID {
		return s
	}
	ret := s.Copy()
	id := ret.NextChannelID
	ret.NextChannelID++
	for i := range ret.Patterns {
		ret.Patterns[i].Channels = append(ret.Patterns[i].Channels, Channel{
			ID:   id,
			Name: fmt.Sprintf("Channel %d", id),
			Grid: make(Grid, ret.Width),
		})
	}
	return ret
}

// AddPattern appends a new pattern that is a copy of the channels of the first
// pattern, steps included.
func (s ChannelState) AddPattern() ChannelState {
	if len(s.Patterns) == 0 || s.NextPatternID > MaxID {
		return s
	}
	ret := s.Copy()
	id := ret.NextPatternID
	ret.NextPatternID++
	p := ret.Patterns[0].Copy()
	p.ID, p.Name = id, fmt.Sprintf("P%d", id)
	ret.Patterns = append(ret.Patterns, p)
	return ret
}

// RenameChannel renames the channel in every pattern.
func (s ChannelState) RenameChannel(channel ChannelID, name string) ChannelState {
	return s.eachChannel(channel, func(c *Channel) { c.Name = name })
}

// RenamePattern renames a single pattern.
func (s ChannelState) RenamePattern(pattern PatternID, name string) ChannelState {
	p := s.PatternIndex(pattern)
	if p < 0 || s.Patterns[p].Name == name {
		return s
	}
	ret := s.Copy()
	ret.Patterns[p].Name = name
	return ret
}

// DeletePattern removes a pattern. The last pattern cannot be deleted. When the
// current pattern is deleted, the first remaining pattern becomes current.
// References to the pattern in the playlist are left as they are.
func (s ChannelState) DeletePattern(pattern PatternID) ChannelState {
	p := s.PatternIndex(pattern)
	if p < 0 || len(s.Patterns) <= 1 {
		return s
	}
	ret := s.Copy()
	ret.Patterns = slices.Delete(ret.Patterns, p, p+1)
	if ret.CurrentPatternID == pattern {
		ret.CurrentPatternID = ret.Patterns[0].ID
	}
	return ret
}

// DeleteChannel removes the channel from every pattern, unless that would
// leave fewer than MinChannels channels.
func (s ChannelState) DeleteChannel(channel ChannelID) ChannelState {
	if len(s.Patterns) == 0 || s.NumChannels() <= MinChannels {
		return s
	}
	c := s.Patterns[0].ChannelIndex(channel)
	if c < 0 {
		return s
	}
	ret := s.Copy()
	for i := range ret.Patterns {
		ret.Patterns[i].Channels = slices.Delete(ret.Patterns[i].Channels, c, c+1)
	}
	return ret
}

// MoveChannel moves the channel at index from to index to, in every pattern.
func (s ChannelState) MoveChannel(from, to int) ChannelState {
	n := s.NumChannels()
	if from < 0 || to < 0 || from >= n || to >= n || from == to {
		return s
	}
	ret := s.Copy()
	for i := range ret.Patterns {
		channels := ret.Patterns[i].Channels
		moved := channels[from]
		channels = slices.Delete(channels, from, from+1)
		ret.Patterns[i].Channels = slices.Insert(channels, to, moved)
	}
	return ret
}

// ResizeWidth changes the global step count. Existing steps within the new
// width are kept, new steps are off and steps beyond the width are dropped.
func (s ChannelState) ResizeWidth(width int) ChannelState {
	if width < 1 || width > MaxWidth || width == s.Width {
		return s
	}
	ret := s.Copy()
	ret.Width = width
	for i := range ret.Patterns {
		for j := range ret.Patterns[i].Channels {
			c := &ret.Patterns[i].Channels[j]
			c.Grid = c.Grid.Resized(width)
		}
	}
	return ret
}

// LoadSample replaces the sample of the channel in every pattern. Releasing the
// replaced resource is up to the owner of the resources; the data model only
// holds references.
func (s ChannelState) LoadSample(channel ChannelID, sample SampleRef) ChannelState {
	return s.eachChannel(channel, func(c *Channel) { c.Sample = sample })
}

// ResetSamples puts the default sample of every channel back.
func (s ChannelState) ResetSamples() ChannelState {
	ret := s.Copy()
	for i := range ret.Patterns {
		for j := range ret.Patterns[i].Channels {
			c := &ret.Patterns[i].Channels[j]
			c.Sample = DefaultSample(c.ID)
		}
	}
	if ret.Equal(s) {
		return s
	}
	return ret
}

// SelectPattern makes the pattern with the given id the current one. The
// current pattern is part of the channel state, so switching patterns is an
// undoable edit here, unlike in the browser editor where it bypasses the
// history.
func (s ChannelState) SelectPattern(pattern PatternID) ChannelState {
	if pattern == s.CurrentPatternID || s.PatternIndex(pattern) < 0 {
		return s
	}
	s.CurrentPatternID = pattern
	return s.Copy()
}

func (s ChannelState) eachChannel(channel ChannelID, f func(*Channel)) ChannelState {
	if len(s.Patterns) == 0 || s.Patterns[0].ChannelIndex(channel) < 0 {
		return s
	}
	ret := s.Copy()
	for i := range ret.Patterns {
		if j := ret.Patterns[i].ChannelIndex(channel); j >= 0 {
			f(&ret.Patterns[i].Channels[j])
		}
	}
	if ret.Equal(s) {
		return s
	}
	return ret
}
