package stepseq

import "slices"

type (
	// ChannelID identifies a channel. The same id names the same channel in
	// every pattern of a ChannelState.
	ChannelID int

	// SampleRef is an opaque handle to an audio resource owned outside of the
	// data model, e.g. a path or an uploaded blob. The empty SampleRef means no
	// sample.
	SampleRef string

	// Grid is the row of steps of a single channel, in practice just a slice of
	// booleans, but Get returns false for indices out of bounds so that readers
	// do not need to check the width first.
	Grid []bool

	// Channel is one lane of a drum pattern: a name, the steps and the sample
	// that the steps trigger.
	Channel struct {
		ID     ChannelID
		Name   string
		Grid   Grid      `yaml:",flow"`
		Sample SampleRef `yaml:",omitempty"`
	}
)

// Get returns the value at index; or false if the index is out of range
func (g Grid) Get(index int) bool {
	if index < 0 || index >= len(g) {
		return false
	}
	return g[index]
}

// Copy makes a copy of the grid that shares no storage with the original.
func (g Grid) Copy() Grid {
	if g == nil {
		return nil
	}
	ret := make(Grid, len(g))
	copy(ret, g)
	return ret
}

// Resized returns a new grid of given width: indices [0, min(len, width)) are
// kept and the rest are padded with false. Steps beyond the width are
// discarded.
func (g Grid) Resized(width int) Grid {
	if width < 0 {
		width = 0
	}
	ret := make(Grid, width)
	copy(ret, g)
	return ret
}

// Active returns the number of steps that are on.
func (g Grid) Active() int {
	ret := 0
	for _, v := range g {
		if v {
			ret++
		}
	}
	return ret
}

func (c *Channel) Copy() Channel {
	return Channel{ID: c.ID, Name: c.Name, Grid: c.Grid.Copy(), Sample: c.Sample}
}

func (c *Channel) Equal(o *Channel) bool {
	return c.ID == o.ID && c.Name == o.Name && c.Sample == o.Sample && slices.Equal(c.Grid, o.Grid)
}
