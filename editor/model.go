package editor

import "github.com/stepseq/stepseq"

// Model implements the mutable state of the editor.
//
// The versioned state is in the History; the views returned by Channels() and
// Playlist() read their own domain from the current snapshot and write it only
// through commit. What is not part of the snapshots (the pattern selected for
// placing into the playlist, the transport settings, the file path and the
// save status) lives in the Model itself.
type Model struct {
	history *History
	pool    *SamplePool
	broker  *Broker

	selected         stepseq.PatternID
	transport        stepseq.Transport
	filePath         string
	changedSinceSave bool
}

// NewModel returns a Model holding the default project. Released samples are
// passed to releaser, which can be nil. maxHistory < 1 means
// DefaultMaxHistory.
func NewModel(broker *Broker, releaser Releaser, maxHistory int) *Model {
	if broker == nil {
		broker = NewBroker()
	}
	return &Model{
		history:   NewHistory(stepseq.DefaultSnapshot(), maxHistory),
		pool:      NewSamplePool(releaser),
		broker:    broker,
		transport: stepseq.DefaultTransport(),
	}
}

func (m *Model) Broker() *Broker { return m.broker }

// Snapshot returns a copy of the current snapshot.
func (m *Model) Snapshot() stepseq.Snapshot { return m.history.Current() }

func (m *Model) CanUndo() bool { return m.history.CanUndo() }
func (m *Model) CanRedo() bool { return m.history.CanRedo() }

// HistoryLen returns the number of snapshots in the history log, HistoryPos
// the index of the current one and HistoryMax the most that are kept.
func (m *Model) HistoryLen() int { return m.history.Len() }
func (m *Model) HistoryPos() int { return m.history.Cursor() }
func (m *Model) HistoryMax() int { return m.history.Max() }

func (m *Model) Samples() *SamplePool { return m.pool }

// Undo returns an Action to undo the last change, whichever domain it touched.
func (m *Model) Undo() Action { return MakeAction((*historyUndo)(m)) }

type historyUndo Model

func (m *historyUndo) Enabled() bool { return m.history.CanUndo() }
func (m *historyUndo) Do() {
	if m.history.Undo() {
		(*Model)(m).changed(Scopes...)
	}
}

// Redo returns an Action to redo the last undone change.
func (m *Model) Redo() Action { return MakeAction((*historyRedo)(m)) }

type historyRedo Model

func (m *historyRedo) Enabled() bool { return m.history.CanRedo() }
func (m *historyRedo) Do() {
	if m.history.Redo() {
		(*Model)(m).changed(Scopes...)
	}
}

// Reset discards the whole history and starts over from s. This cannot be
// undone.
func (m *Model) Reset(s stepseq.Snapshot) {
	m.history.Reset(s)
	m.selected = stepseq.NoPattern
	m.changed(Scopes...)
}

// New starts a new project from the default snapshot and transport settings.
func (m *Model) New() {
	m.Reset(stepseq.DefaultSnapshot())
	m.Transport().set(stepseq.DefaultTransport())
	m.filePath = ""
	m.changedSinceSave = false
}

// Project returns the current state in its saved form.
func (m *Model) Project() stepseq.Project {
	return stepseq.NewProject(m.history.current(), m.selected, m.transport)
}

// LoadProject repairs p and starts a fresh history from it. Loading never
// fails; whatever is missing or invalid in p is replaced by defaults.
func (m *Model) LoadProject(p stepseq.Project) {
	m.Reset(p.Snapshot())
	m.Transport().set(p.TransportState())
	if sel := p.SelectedPattern(); m.patternExists(sel) {
		m.selected = sel
	}
	m.changedSinceSave = false
}

func (m *Model) FilePath() string       { return m.filePath }
func (m *Model) ChangedSinceSave() bool { return m.changedSinceSave }

// ProcessMsg handles a message that arrived in Broker.ToModel.
func (m *Model) ProcessMsg(msg MsgToModel) {
	switch e := msg.Data.(type) {
	case SampleLoaded:
		m.Channels().LoadSample(e.Channel, e.Sample)
	case func(*Model):
		e(m)
	default:
	}
}

// Close releases every sample resource the model still owns.
func (m *Model) Close() {
	m.pool.Close()
}

// commit routes a candidate change of one domain to the History and, if it
// changed anything, publishes the result.
func (m *Model) commit(scope Scope, update func(stepseq.Snapshot) stepseq.Snapshot) bool {
	if !m.history.Commit(scope, update) {
		return false
	}
	m.changed(scope)
	return true
}

func (m *Model) changed(scopes ...Scope) {
	m.changedSinceSave = true
	m.pool.Collect(m.history.Samples)
	for _, scope := range scopes {
		TrySend(m.broker.ToGUI, Change{
			Scope:     scope,
			Snapshot:  m.history.Current(),
			Transport: m.transport,
			CanUndo:   m.history.CanUndo(),
			CanRedo:   m.history.CanRedo(),
		})
	}
}

func (m *Model) patternExists(id stepseq.PatternID) bool {
	return m.history.current().Channels.PatternIndex(id) >= 0
}
