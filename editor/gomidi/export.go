// Package gomidi writes patterns and playlists as Standard MIDI Files, so
// that an arrangement can be taken to another sequencer or a DAW.
package gomidi

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/stepseq/stepseq"
)

type (
	// Exporter renders steps as drum hits: every active step of a channel is a
	// note on the MIDI percussion channel, a sixteenth long by default.
	Exporter struct {
		BPM             float64
		StepsPerBeat    int
		TicksPerQuarter uint16
		Velocity        uint8
		// Numerator and Denominator give the meter written to the file.
		Numerator, Denominator uint8
		// Note maps a channel to its drum note. Nil means DrumNote.
		Note func(stepseq.ChannelID) uint8
	}

	noteEvent struct {
		tick uint32
		key  uint8
		on   bool
	}
)

// PercussionChannel is the zero based General MIDI drum channel.
const PercussionChannel = 9

var drumNotes = []uint8{
	36, // kick
	38, // snare
	46, // open hihat
	39, // clap
}

// DrumNote returns the General MIDI drum note for a channel: the default kit
// plays kick, snare, open hihat and clap; the channels added after it walk up
// the percussion map from the low tom.
func DrumNote(id stepseq.ChannelID) uint8 {
	if id < 0 {
		return drumNotes[0]
	}
	if int(id) < len(drumNotes) {
		return drumNotes[id]
	}
	const low, high = 41, 81
	return uint8(low + (int(id)-len(drumNotes))%(high-low+1))
}

func DefaultExporter() Exporter {
	return Exporter{BPM: stepseq.DefaultBPM, StepsPerBeat: 4, TicksPerQuarter: 480, Velocity: 100, Numerator: 4, Denominator: 4}
}

// WithTransport returns e with the tempo and the meter of a project.
func (e Exporter) WithTransport(t stepseq.Transport) Exporter {
	e.BPM = t.BPM
	if t.TimeSignature.Valid() {
		e.Numerator, e.Denominator = uint8(t.TimeSignature.Numerator), uint8(t.TimeSignature.Denominator)
	}
	return e
}

// ExportPattern writes one pattern of s as a single track MIDI file.
func (e Exporter) ExportPattern(w io.Writer, s stepseq.ChannelState, id stepseq.PatternID) error {
	p, ok := s.Pattern(id)
	if !ok {
		return fmt.Errorf("pattern %d does not exist", id)
	}
	e = e.withDefaults()
	notes := e.patternNotes(p, 0)
	return e.write(w, []namedNotes{{p.Name, notes, e.ticks(s.Width)}})
}

// ExportArrangement writes the playlist of a snapshot: each playlist track
// becomes a MIDI track and each column lasts one pattern. Empty slots and
// slots referring to deleted patterns are silent.
func (e Exporter) ExportArrangement(w io.Writer, snap stepseq.Snapshot) error {
	e = e.withDefaults()
	bar := e.ticks(snap.Channels.Width)
	var tracks []namedNotes
	for _, t := range snap.Playlist.Tracks {
		var notes []noteEvent
		for col, id := range t.Grid {
			p, ok := snap.Channels.Pattern(id)
			if id == stepseq.NoPattern || !ok {
				continue
			}
			notes = append(notes, e.patternNotes(p, uint32(col)*bar)...)
		}
		tracks = append(tracks, namedNotes{t.Name, notes, uint32(snap.Playlist.Width) * bar})
	}
	return e.write(w, tracks)
}

type namedNotes struct {
	name   string
	notes  []noteEvent
	length uint32
}

func (e Exporter) withDefaults() Exporter {
	d := DefaultExporter()
	if e.BPM <= 0 {
		e.BPM = d.BPM
	}
	if e.StepsPerBeat < 1 {
		e.StepsPerBeat = d.StepsPerBeat
	}
	if e.TicksPerQuarter == 0 {
		e.TicksPerQuarter = d.TicksPerQuarter
	}
	if e.Velocity == 0 || e.Velocity > 127 {
		e.Velocity = d.Velocity
	}
	if e.Note == nil {
		e.Note = DrumNote
	}
	if e.Numerator == 0 || e.Denominator == 0 {
		e.Numerator, e.Denominator = d.Numerator, d.Denominator
	}
	return e
}

func (e Exporter) ticksPerStep() uint32 {
	return max(uint32(e.TicksPerQuarter)/uint32(e.StepsPerBeat), 1)
}

func (e Exporter) ticks(steps int) uint32 { return uint32(steps) * e.ticksPerStep() }

func (e Exporter) patternNotes(p stepseq.Pattern, offset uint32) []noteEvent {
	step := e.ticksPerStep()
	length := max(step/2, 1)
	var ret []noteEvent
	for _, c := range p.Channels {
		key := e.Note(c.ID)
		for i, on := range c.Grid {
			if !on {
				continue
			}
			start := offset + uint32(i)*step
			ret = append(ret, noteEvent{start, key, true}, noteEvent{start + length, key, false})
		}
	}
	return ret
}

func (e Exporter) write(w io.Writer, tracks []namedNotes) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(e.TicksPerQuarter)
	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(e.Numerator, e.Denominator))
	conductor.Add(0, smf.MetaTempo(e.BPM))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("failed to add tempo track: %w", err)
	}
	for _, t := range tracks {
		if err := s.Add(e.track(t)); err != nil {
			return fmt.Errorf("failed to add track %q: %w", t.name, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI: %w", err)
	}
	return nil
}

func (e Exporter) track(t namedNotes) smf.Track {
	notes := slices.Clone(t.notes)
	// note offs go first so that a retriggered note is not cut short
	slices.SortStableFunc(notes, func(a, b noteEvent) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		switch {
		case a.on == b.on:
			return 0
		case b.on:
			return -1
		}
		return 1
	})
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(t.name))
	var tick uint32
	for _, n := range notes {
		if n.on {
			track.Add(n.tick-tick, midi.NoteOn(PercussionChannel, n.key, e.Velocity))
		} else {
			track.Add(n.tick-tick, midi.NoteOff(PercussionChannel, n.key))
		}
		tick = n.tick
	}
	var end uint32
	if t.length > tick {
		end = t.length - tick
	}
	track.Close(end)
	return track
}
