package script_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stepseq/stepseq/editor"
	"github.com/stepseq/stepseq/script"
)

func TestSplit(t *testing.T) {
	var tests = []struct {
		line string
		want []string
	}{
		{"", nil},
		{"  undo  ", []string{"undo"}},
		{"toggle 1\t0 4", []string{"toggle", "1", "0", "4"}},
		{`rename-channel 4 "Big Shaker"`, []string{"rename-channel", "4", "Big Shaker"}},
		{`rename-track 0 "say \"hi\""`, []string{"rename-track", "0", `say "hi"`}},
	}
	for _, tt := range tests {
		got, err := script.Split(tt.line)
		if err != nil {
			t.Fatalf("Split(%q): %v", tt.line, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) got %q, want %q", tt.line, got, tt.want)
		}
	}
	if _, err := script.Split(`rename-track 0 "open`); err == nil {
		t.Errorf("expected an error for an unterminated quote")
	}
}

func TestExecErrors(t *testing.T) {
	m := editor.NewModel(nil, nil, 0)
	var tests = []string{
		"jump 1",
		"toggle 1 0",
		"toggle 1 0 4 5",
		"toggle one 0 4",
		"place 0 0 x",
	}
	for _, line := range tests {
		if _, err := script.Exec(m, line); err == nil {
			t.Errorf("Exec(%q) did not fail", line)
		}
	}
	if _, err := script.Exec(m, "jump"); !errors.Is(err, script.ErrUnknownCommand) {
		t.Errorf("got %v, want ErrUnknownCommand", err)
	}
	if m.CanUndo() {
		t.Fatalf("a failed command changed the project")
	}
}

func TestRun(t *testing.T) {
	m := editor.NewModel(nil, nil, 0)
	src := `# a four on the floor
toggle 1 0 0
toggle 1 0 4
toggle 1 0 8
toggle 1 0 12
add-channel
rename-channel 4 "Shaker"
delete-channel 99
pick 2
place 0 1
width 8
undo
redo
`
	n, err := script.Run(m, strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("got %d changing lines, want 10", n)
	}
	s := m.Snapshot()
	p, _ := s.Channels.Pattern(1)
	if got := p.Channels[0].Grid.Active(); got != 2 || s.Channels.Width != 8 {
		t.Fatalf("got %d active kick steps and width %d", got, s.Channels.Width)
	}
	if p.Channels[4].Name != "Shaker" || s.Playlist.Tracks[0].Grid[1] != 2 {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestRunStopsAtError(t *testing.T) {
	m := editor.NewModel(nil, nil, 0)
	n, err := script.Run(m, strings.NewReader("add-pattern\nbogus\nadd-pattern\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("got error %v, want one on line 2", err)
	}
	if n != 1 || len(m.Snapshot().Channels.Patterns) != 3 {
		t.Fatalf("unexpected state after the error")
	}
}

func TestEveryCommandHasUsage(t *testing.T) {
	for _, name := range script.Commands() {
		if u := script.Usage(name); !strings.HasPrefix(u, name) || !strings.Contains(u, ": ") {
			t.Errorf("bad usage for %s: %q", name, u)
		}
	}
}

func TestCommentsAreNotParsed(t *testing.T) {
	m := editor.NewModel(nil, nil, 0)
	for _, line := range []string{`# the "big kick`, `   # "`, "#"} {
		if changed, err := script.Exec(m, line); err != nil || changed {
			t.Errorf("Exec(%q) = %v, %v", line, changed, err)
		}
	}
}

func TestSetAndTransport(t *testing.T) {
	m := editor.NewModel(nil, nil, 0)
	src := `set 1 1 3 1
set 1 1 3 1
tempo 90
nudge-tempo -5
time-signature 3 4
time-signature 3 5
loop 0
metronome 1
`
	n, err := script.Run(m, strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("got %d changing lines, want 6", n)
	}
	p, _ := m.Snapshot().Channels.Pattern(1)
	if !p.Channels[1].Grid.Get(3) {
		t.Fatalf("set did not turn the step on")
	}
	tr := m.Transport().State()
	if tr.BPM != 85 || tr.TimeSignature.Numerator != 3 || tr.TimeSignature.Denominator != 4 || tr.LoopEnabled || !tr.MetronomeEnabled {
		t.Fatalf("unexpected transport %+v", tr)
	}
	if m.HistoryLen() != 2 {
		t.Fatalf("transport commands were committed to the history: %d entries", m.HistoryLen())
	}
}
