package editor

import "github.com/stepseq/stepseq"

// Channels returns the Channels view of the model, containing methods to
// manipulate the patterns and their channels.
func (m *Model) Channels() *ChannelsModel { return (*ChannelsModel)(m) }

type ChannelsModel Model

// channelEdit is an Action built from a pure operation on the channel domain:
// it is enabled when the operation would change the state, and doing it
// commits the result in the channel scope.
type channelEdit struct {
	m *ChannelsModel
	f func(stepseq.ChannelState) stepseq.ChannelState
}

func (e channelEdit) Enabled() bool {
	s := e.m.history.current().Channels
	return !e.f(s).Equal(s)
}

func (e channelEdit) Do() {
	(*Model)(e.m).commit(ChannelScope, func(s stepseq.Snapshot) stepseq.Snapshot {
		s.Channels = e.f(s.Channels)
		return s
	})
}

func (m *ChannelsModel) edit(f func(stepseq.ChannelState) stepseq.ChannelState) Action {
	return MakeAction(channelEdit{m: m, f: f})
}

// State returns a copy of the channel domain.
func (m *ChannelsModel) State() stepseq.ChannelState { return m.history.current().Channels.Copy() }

// Current returns the pattern being edited, which the player plays.
func (m *ChannelsModel) Current() (stepseq.Pattern, bool) {
	p, ok := m.history.current().Channels.CurrentPattern()
	return p.Copy(), ok
}

// Toggle returns an Action to flip a step.
func (m *ChannelsModel) Toggle(pattern stepseq.PatternID, channel stepseq.ChannelID, index int) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.ToggleCell(pattern, channel, index) })
}

// Clear returns an Action to turn a step off.
func (m *ChannelsModel) Clear(pattern stepseq.PatternID, channel stepseq.ChannelID, index int) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.ClearCell(pattern, channel, index) })
}

// Set returns an Action to turn a step on or off.
func (m *ChannelsModel) Set(pattern stepseq.PatternID, channel stepseq.ChannelID, index int, value bool) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.SetCell(pattern, channel, index, value) })
}

// ClearPattern returns an Action to turn off every step of a pattern.
func (m *ChannelsModel) ClearPattern(pattern stepseq.PatternID) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.ClearPattern(pattern) })
}

// Add returns an Action to add a new empty channel to every pattern.
func (m *ChannelsModel) Add() Action {
	return m.edit(stepseq.ChannelState.AddChannel)
}

// AddPattern returns an Action to add a pattern copied from the first one.
func (m *ChannelsModel) AddPattern() Action {
	return m.edit(stepseq.ChannelState.AddPattern)
}

// Rename returns an Action to rename a channel in every pattern.
func (m *ChannelsModel) Rename(channel stepseq.ChannelID, name string) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.RenameChannel(channel, name) })
}

// RenamePattern returns an Action to rename a pattern.
func (m *ChannelsModel) RenamePattern(pattern stepseq.PatternID, name string) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.RenamePattern(pattern, name) })
}

// DeletePattern returns an Action to delete a pattern. The playlist slots
// referring to it are kept; see PlaylistModel.RemoveOrphans.
func (m *ChannelsModel) DeletePattern(pattern stepseq.PatternID) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.DeletePattern(pattern) })
}

// Delete returns an Action to delete a channel from every pattern. It is
// disabled when only stepseq.MinChannels channels are left.
func (m *ChannelsModel) Delete(channel stepseq.ChannelID) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.DeleteChannel(channel) })
}

// Move returns an Action to move the channel at index from to index to.
func (m *ChannelsModel) Move(from, to int) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.MoveChannel(from, to) })
}

// Select returns an Action to make a pattern the current one. Unlike in the
// browser editor, the selection is committed and can be undone.
func (m *ChannelsModel) Select(pattern stepseq.PatternID) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.SelectPattern(pattern) })
}

// ResetSamples returns an Action to put the default samples back.
func (m *ChannelsModel) ResetSamples() Action {
	return m.edit(stepseq.ChannelState.ResetSamples)
}

// LoadSample makes sample the sample of channel, taking ownership of it. The
// replaced sample is released once no snapshot of the history refers to it;
// if the load changes nothing, e.g. because the channel is gone, sample
// itself is released right away.
func (m *ChannelsModel) LoadSample(channel stepseq.ChannelID, sample stepseq.SampleRef) bool {
	m.pool.Adopt(sample)
	ok := m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.LoadSample(channel, sample) }).Do()
	m.pool.Collect(m.history.Samples)
	return ok
}

// Resize returns an Action to change the number of steps of every pattern.
func (m *ChannelsModel) Resize(width int) Action {
	return m.edit(func(s stepseq.ChannelState) stepseq.ChannelState { return s.ResizeWidth(width) })
}

// Width returns an Int controlling the number of steps of every pattern.
func (m *ChannelsModel) Width() Int { return MakeInt((*channelWidth)(m)) }

type channelWidth ChannelsModel

func (v *channelWidth) Value() int { return v.history.current().Channels.Width }
func (v *channelWidth) SetValue(value int) bool {
	return (*ChannelsModel)(v).Resize(value).Do()
}
func (v *channelWidth) Range() RangeInclusive { return RangeInclusive{1, stepseq.MaxWidth} }

// Name returns a String controlling the name of a channel.
func (m *ChannelsModel) Name(channel stepseq.ChannelID) String {
	return MakeString(channelName{m: m, channel: channel})
}

type channelName struct {
	m       *ChannelsModel
	channel stepseq.ChannelID
}

func (v channelName) Value() string {
	s := v.m.history.current().Channels
	if len(s.Patterns) == 0 {
		return ""
	}
	c, _ := s.Patterns[0].Channel(v.channel)
	return c.Name
}

func (v channelName) SetValue(value string) bool { return v.m.Rename(v.channel, value).Do() }
