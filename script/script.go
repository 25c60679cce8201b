// Package script implements a small line oriented command language for
// editing a project, e.g.
//
//	toggle 1 0 4
//	add-channel
//	rename-channel 4 "Shaker"
//	undo
//
// Every command maps onto one action of the editor, so a script edits the
// project exactly like a user would: each edit command is one undoable change.
// The transport commands (tempo, time-signature, loop and metronome) change
// settings that are saved with the project but are not part of the history.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
)

type command struct {
	args  []string
	usage string
	run   func(m *editor.Model, a args) bool
}

// args holds the arguments of a command together with their names.
type args struct {
	names  []string
	values []string
}

var ErrUnknownCommand = errors.New("unknown command")

var commands = map[string]command{
	"toggle": {args: []string{"pattern", "channel", "step"}, usage: "flip a step", run: func(m *editor.Model, a args) bool {
		return m.Channels().Toggle(a.pattern(0), a.channel(1), a.num(2)).Do()
	}},
	"set": {args: []string{"pattern", "channel", "step", "on"}, usage: "turn a step on (1) or off (0)", run: func(m *editor.Model, a args) bool {
		return m.Channels().Set(a.pattern(0), a.channel(1), a.num(2), a.num(3) != 0).Do()
	}},
	"clear": {args: []string{"pattern", "channel", "step"}, usage: "turn a step off", run: func(m *editor.Model, a args) bool {
		return m.Channels().Clear(a.pattern(0), a.channel(1), a.num(2)).Do()
	}},
	"clear-pattern": {args: []string{"pattern"}, usage: "turn every step of a pattern off", run: func(m *editor.Model, a args) bool {
		return m.Channels().ClearPattern(a.pattern(0)).Do()
	}},
	"add-channel": {usage: "add a channel to every pattern", run: func(m *editor.Model, a args) bool {
		return m.Channels().Add().Do()
	}},
	"add-pattern": {usage: "add a copy of the first pattern", run: func(m *editor.Model, a args) bool {
		return m.Channels().AddPattern().Do()
	}},
	"rename-channel": {args: []string{"channel", "name"}, usage: "rename a channel", run: func(m *editor.Model, a args) bool {
		return m.Channels().Rename(a.channel(0), a.text(1)).Do()
	}},
	"rename-pattern": {args: []string{"pattern", "name"}, usage: "rename a pattern", run: func(m *editor.Model, a args) bool {
		return m.Channels().RenamePattern(a.pattern(0), a.text(1)).Do()
	}},
	"delete-pattern": {args: []string{"pattern"}, usage: "delete a pattern", run: func(m *editor.Model, a args) bool {
		return m.Channels().DeletePattern(a.pattern(0)).Do()
	}},
	"delete-channel": {args: []string{"channel"}, usage: "delete a channel from every pattern", run: func(m *editor.Model, a args) bool {
		return m.Channels().Delete(a.channel(0)).Do()
	}},
	"move-channel": {args: []string{"from", "to"}, usage: "move a channel to another position", run: func(m *editor.Model, a args) bool {
		return m.Channels().Move(a.num(0), a.num(1)).Do()
	}},
	"width": {args: []string{"steps"}, usage: "set the number of steps", run: func(m *editor.Model, a args) bool {
		return m.Channels().Resize(a.num(0)).Do()
	}},
	"load-sample": {args: []string{"channel", "sample"}, usage: "set the sample of a channel", run: func(m *editor.Model, a args) bool {
		return m.Channels().LoadSample(a.channel(0), stepseq.SampleRef(a.text(1)))
	}},
	"reset-samples": {usage: "put the default samples back", run: func(m *editor.Model, a args) bool {
		return m.Channels().ResetSamples().Do()
	}},
	"select": {args: []string{"pattern"}, usage: "make a pattern the current one", run: func(m *editor.Model, a args) bool {
		return m.Channels().Select(a.pattern(0)).Do()
	}},
	"pick": {args: []string{"pattern"}, usage: "select the pattern to place", run: func(m *editor.Model, a args) bool {
		m.Playlist().SelectPattern(a.pattern(0))
		return false
	}},
	"place": {args: []string{"row", "col", "[pattern]"}, usage: "place a pattern into the playlist", run: func(m *editor.Model, a args) bool {
		return m.Playlist().Place(a.num(0), a.num(1), a.pattern(2)).Do()
	}},
	"clear-slot": {args: []string{"row", "col"}, usage: "empty a playlist slot", run: func(m *editor.Model, a args) bool {
		return m.Playlist().Clear(a.num(0), a.num(1)).Do()
	}},
	"rename-track": {args: []string{"track", "name"}, usage: "rename a playlist track", run: func(m *editor.Model, a args) bool {
		return m.Playlist().RenameTrack(a.num(0), a.text(1)).Do()
	}},
	"dimensions": {args: []string{"width", "height"}, usage: "resize the playlist", run: func(m *editor.Model, a args) bool {
		return m.Playlist().SetDimensions(a.num(0), a.num(1)).Do()
	}},
	"clear-playlist": {usage: "empty the playlist", run: func(m *editor.Model, a args) bool {
		return m.Playlist().ClearAll().Do()
	}},
	"remove-orphans": {usage: "empty the slots of deleted patterns", run: func(m *editor.Model, a args) bool {
		return m.Playlist().RemoveOrphans().Do()
	}},
	"tempo": {args: []string{"bpm"}, usage: "set the tempo", run: func(m *editor.Model, a args) bool {
		return m.Transport().BPM().SetValue(a.num(0))
	}},
	"nudge-tempo": {args: []string{"delta"}, usage: "speed the tempo up or, with a negative delta, down", run: func(m *editor.Model, a args) bool {
		return m.Transport().BPM().Add(a.num(0))
	}},
	"time-signature": {args: []string{"numerator", "denominator"}, usage: "set the meter", run: func(m *editor.Model, a args) bool {
		return m.Transport().SetTimeSignature(a.num(0), a.num(1))
	}},
	"loop": {args: []string{"on"}, usage: "loop the playback (1) or not (0)", run: func(m *editor.Model, a args) bool {
		return m.Transport().Loop().SetValue(a.num(0) != 0)
	}},
	"metronome": {args: []string{"on"}, usage: "click the beats (1) or not (0)", run: func(m *editor.Model, a args) bool {
		return m.Transport().Metronome().SetValue(a.num(0) != 0)
	}},
	"undo": {usage: "undo the last change", run: func(m *editor.Model, a args) bool {
		return m.Undo().Do()
	}},
	"redo": {usage: "redo the last undone change", run: func(m *editor.Model, a args) bool {
		return m.Redo().Do()
	}},
}

// Commands returns the names of the commands, sorted.
func Commands() []string {
	ret := make([]string, 0, len(commands))
	for name := range commands {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

// Usage returns a one line description of a command.
func Usage(name string) string {
	c, ok := commands[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", name, strings.Join(c.args, " "))) + ": " + c.usage
}

// Exec runs one line and reports whether it changed the project. Empty lines
// and lines starting with # do nothing. An edit that is invalid for the
// current state, like deleting a channel below the minimum, is not an error:
// it just changes nothing.
func Exec(m *editor.Model, line string) (bool, error) {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return false, nil
	}
	fields, err := Split(line)
	if err != nil {
		return false, err
	}
	if len(fields) == 0 {
		return false, nil
	}
	c, ok := commands[fields[0]]
	if !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	required := 0
	for _, a := range c.args {
		if !strings.HasPrefix(a, "[") {
			required++
		}
	}
	if n := len(fields) - 1; n < required || n > len(c.args) {
		return false, fmt.Errorf("usage: %s", Usage(fields[0]))
	}
	a := args{names: c.args, values: fields[1:]}
	if err := a.check(); err != nil {
		return false, fmt.Errorf("%s: %w", fields[0], err)
	}
	return c.run(m, a), nil
}

// Run executes every line read from r and returns the number of lines that
// changed the project. It stops at the first error.
func Run(m *editor.Model, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	changed, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		ok, err := Exec(m, scanner.Text())
		if err != nil {
			return changed, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			changed++
		}
	}
	if err := scanner.Err(); err != nil {
		return changed, fmt.Errorf("error reading script: %w", err)
	}
	return changed, nil
}

// Split splits a line into fields at white space. A field can be double
// quoted, with Go escapes, to contain spaces.
func Split(line string) ([]string, error) {
	var ret []string
	rest := strings.TrimSpace(line)
	for rest != "" {
		if rest[0] == '"' {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("bad quoted field: %s", rest)
			}
			field, _ := strconv.Unquote(quoted)
			ret = append(ret, field)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			ret = append(ret, rest[:end])
			rest = rest[end:]
		}
		rest = strings.TrimLeft(rest, " \t")
	}
	return ret, nil
}

// check verifies that the arguments which have to be numbers are, so that
// errors are found before anything runs. Names and samples are the only free
// text arguments.
func (a args) check() error {
	for i, v := range a.values {
		switch a.names[i] {
		case "name", "sample":
			continue
		}
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("%s: %q is not a number", strings.Trim(a.names[i], "[]"), v)
		}
	}
	return nil
}

func (a args) num(i int) int {
	if i >= len(a.values) {
		return 0
	}
	v, _ := strconv.Atoi(a.values[i])
	return v
}

func (a args) text(i int) string {
	if i >= len(a.values) {
		return ""
	}
	return a.values[i]
}

func (a args) pattern(i int) stepseq.PatternID { return stepseq.PatternID(a.num(i)) }
func (a args) channel(i int) stepseq.ChannelID { return stepseq.ChannelID(a.num(i)) }
