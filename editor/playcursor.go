package editor

import "sync/atomic"

// PlayCursor is the position of the playback in the current pattern. It is
// written by the player goroutine and only read by everyone else; it is never
// part of a snapshot, so undo and redo do not move it.
type PlayCursor struct {
	step    atomic.Int64
	playing atomic.Bool
}

func (c *PlayCursor) Start() {
	c.step.Store(0)
	c.playing.Store(true)
}

func (c *PlayCursor) Stop() { c.playing.Store(false) }

func (c *PlayCursor) Playing() bool { return c.playing.Load() }

// Step returns the step being played.
func (c *PlayCursor) Step() int { return int(c.step.Load()) }

// Advance moves the cursor to the next step and returns it. At the end of a
// pattern of width steps the cursor wraps around if loop is set; otherwise the
// playback stops and rewinds, like Stop followed by a rewind. A stopped cursor
// does not move.
func (c *PlayCursor) Advance(width int, loop bool) int {
	if !c.playing.Load() || width < 1 {
		return c.Step()
	}
	for {
		old := c.step.Load()
		next := (old + 1) % int64(width)
		if !c.step.CompareAndSwap(old, next) {
			continue
		}
		if next == 0 && !loop {
			c.playing.Store(false)
		}
		return int(next)
	}
}
