package editor

import (
	"math"

	"github.com/stepseq/stepseq"
)

// Transport returns the Transport view of the model, containing methods to
// change the playback settings of the project. The settings are saved with the
// project, but changing them is not part of the history.
func (m *Model) Transport() *TransportModel { return (*TransportModel)(m) }

type TransportModel Model

func (m *TransportModel) State() stepseq.Transport { return m.transport }

// SetBPM changes the tempo, clamped to stepseq.MinBPM..stepseq.MaxBPM.
func (m *TransportModel) SetBPM(bpm float64) bool {
	return m.set(m.transport.SetBPM(bpm))
}

// SetTimeSignature changes the meter. An invalid meter changes nothing.
func (m *TransportModel) SetTimeSignature(numerator, denominator int) bool {
	return m.set(m.transport.SetTimeSignature(stepseq.TimeSignature{Numerator: numerator, Denominator: denominator}))
}

func (m *TransportModel) set(t stepseq.Transport) bool {
	if t == m.transport {
		return false
	}
	m.transport = t
	m.changedSinceSave = true
	TrySend(m.broker.ToGUI, Change{
		Scope:     TransportScope,
		Snapshot:  m.history.Current(),
		Transport: t,
		CanUndo:   m.history.CanUndo(),
		CanRedo:   m.history.CanRedo(),
	})
	return true
}

// BPM returns an Int controlling the tempo in whole beats per minute.
func (m *TransportModel) BPM() Int { return MakeInt((*transportBPM)(m)) }

// Loop and Metronome return Bools controlling whether the playback loops the
// pattern and whether it clicks the beats.
func (m *TransportModel) Loop() Bool      { return MakeBool((*transportLoop)(m)) }
func (m *TransportModel) Metronome() Bool { return MakeBool((*transportMetronome)(m)) }

type (
	transportBPM       TransportModel
	transportLoop      TransportModel
	transportMetronome TransportModel
)

func (v *transportBPM) Value() int { return int(math.Round(v.transport.BPM)) }
func (v *transportBPM) SetValue(value int) bool {
	return (*TransportModel)(v).SetBPM(float64(value))
}
func (v *transportBPM) Range() RangeInclusive { return RangeInclusive{stepseq.MinBPM, stepseq.MaxBPM} }

func (v *transportLoop) Value() bool { return v.transport.LoopEnabled }
func (v *transportLoop) SetValue(value bool) bool {
	t := v.transport
	t.LoopEnabled = value
	return (*TransportModel)(v).set(t)
}

func (v *transportMetronome) Value() bool { return v.transport.MetronomeEnabled }
func (v *transportMetronome) SetValue(value bool) bool {
	t := v.transport
	t.MetronomeEnabled = value
	return (*TransportModel)(v).set(t)
}
