package editor_test

import (
	"testing"
	"time"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
)

func TestTransportIsNotUndone(t *testing.T) {
	m, _ := newModel(t, 0)
	m.Channels().Toggle(1, kick, 0).Do()
	if !m.Transport().SetBPM(98) {
		t.Fatalf("SetBPM did not change the tempo")
	}
	if m.Transport().SetBPM(98) {
		t.Fatalf("setting the same tempo reported a change")
	}
	if m.HistoryLen() != 2 {
		t.Fatalf("transport change was committed to the history: %d entries", m.HistoryLen())
	}
	m.Undo().Do()
	if got := m.Transport().State().BPM; got != 98 {
		t.Fatalf("undo changed the tempo to %v", got)
	}
	if !m.ChangedSinceSave() {
		t.Fatalf("expected unsaved changes")
	}
}

func TestTransportValues(t *testing.T) {
	m, _ := newModel(t, 0)
	tr := m.Transport()
	if tr.State() != stepseq.DefaultTransport() {
		t.Fatalf("unexpected default transport %+v", tr.State())
	}
	if tr.BPM().SetValue(1000); tr.BPM().Value() != stepseq.MaxBPM {
		t.Fatalf("BPM not clamped: %d", tr.BPM().Value())
	}
	if tr.SetTimeSignature(5, 3) {
		t.Fatalf("invalid time signature was accepted")
	}
	if !tr.SetTimeSignature(6, 8) || tr.State().TimeSignature != (stepseq.TimeSignature{Numerator: 6, Denominator: 8}) {
		t.Fatalf("time signature not set: %+v", tr.State().TimeSignature)
	}
	if !tr.Loop().Toggle() || tr.Loop().Value() {
		t.Fatalf("loop did not toggle off")
	}
	if !tr.Metronome().SetValue(true) || tr.Metronome().SetValue(true) {
		t.Fatalf("metronome should change exactly once")
	}
}

func TestTransportSavedWithProject(t *testing.T) {
	m, _ := newModel(t, 0)
	m.Transport().SetBPM(87.5)
	m.Transport().Loop().SetValue(false)
	p := m.Project()
	n, _ := newModel(t, 0)
	n.LoadProject(p)
	if got := n.Transport().State(); got != m.Transport().State() {
		t.Fatalf("got transport %+v, want %+v", got, m.Transport().State())
	}
	n.New()
	if got := n.Transport().State(); got != stepseq.DefaultTransport() {
		t.Fatalf("New kept transport %+v", got)
	}
}

func TestTransportChangeIsPublished(t *testing.T) {
	m, _ := newModel(t, 0)
	m.Transport().SetBPM(140)
	c, ok := editor.TimeoutReceive(m.Broker().ToGUI, time.Second)
	if !ok || c.Scope != editor.TransportScope || c.Transport.BPM != 140 {
		t.Fatalf("unexpected change %+v (received %v)", c, ok)
	}
}

func TestPlayCursor(t *testing.T) {
	var c editor.PlayCursor
	if c.Advance(4, true) != 0 {
		t.Fatalf("a stopped cursor moved")
	}
	c.Start()
	for i := 1; i < 4; i++ {
		if got := c.Advance(4, true); got != i {
			t.Fatalf("step %d: got %d", i, got)
		}
	}
	if c.Advance(4, true) != 0 || !c.Playing() {
		t.Fatalf("looping cursor did not wrap")
	}
	c.Advance(2, false)
	if c.Advance(2, false) != 0 || c.Playing() {
		t.Fatalf("cursor without loop did not stop at the end")
	}
}
