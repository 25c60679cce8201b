package stepseq

type (
	// PatternID identifies a pattern of the channel domain. Ids are allocated
	// from 1 upwards and are never reused, so the zero value NoPattern can mark
	// an empty playlist slot.
	PatternID int

	// Pattern is a named set of channels. Every pattern of a ChannelState has
	// the same channels in the same order; only the steps differ.
	Pattern struct {
		ID       PatternID
		Name     string
		Channels []Channel
	}
)

const NoPattern PatternID = 0

func (p *Pattern) Copy() Pattern {
	channels := make([]Channel, len(p.Channels))
	for i, c := range p.Channels {
		channels[i] = c.Copy()
	}
	return Pattern{ID: p.ID, Name: p.Name, Channels: channels}
}

func (p *Pattern) Equal(o *Pattern) bool {
	if p.ID != o.ID || p.Name != o.Name || len(p.Channels) != len(o.Channels) {
		return false
	}
	for i := range p.Channels {
		if !p.Channels[i].Equal(&o.Channels[i]) {
			return false
		}
	}
	return true
}

// ChannelIndex returns the index of the channel with the given id, or -1 if the
// pattern has no such channel.
func (p *Pattern) ChannelIndex(id ChannelID) int {
	for i, c := range p.Channels {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Channel returns the channel with the given id.
func (p *Pattern) Channel(id ChannelID) (Channel, bool) {
	if i := p.ChannelIndex(id); i >= 0 {
		return p.Channels[i], true
	}
	return Channel{}, false
}
