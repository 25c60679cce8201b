package stepseq

import "math"

type (
	// TimeSignature is the meter of a project, e.g. 3/4.
	TimeSignature struct {
		Numerator   int `json:"numerator" yaml:"numerator"`
		Denominator int `json:"denominator" yaml:"denominator"`
	}

	// Transport holds the playback settings of a project. They are saved with
	// the project but are not part of a Snapshot, so undo and redo never
	// change them.
	Transport struct {
		BPM              float64
		TimeSignature    TimeSignature
		LoopEnabled      bool
		MetronomeEnabled bool
	}

	// TransportData is the saved form of the transport settings. Every field is
	// optional.
	TransportData struct {
		BPM              *float64       `json:"bpm,omitempty" yaml:"bpm,omitempty"`
		TimeSignature    *TimeSignature `json:"timeSignature,omitempty" yaml:"timeSignature,omitempty,flow"`
		LoopEnabled      *bool          `json:"loopEnabled,omitempty" yaml:"loopEnabled,omitempty"`
		MetronomeEnabled *bool          `json:"metronomeEnabled,omitempty" yaml:"metronomeEnabled,omitempty"`
	}
)

const (
	MinBPM     = 20
	MaxBPM     = 300
	DefaultBPM = 120
)

func DefaultTransport() Transport {
	return Transport{BPM: DefaultBPM, TimeSignature: TimeSignature{4, 4}, LoopEnabled: true}
}

// ClampBPM returns bpm limited to MinBPM..MaxBPM; NaN becomes DefaultBPM.
func ClampBPM(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return DefaultBPM
	}
	return max(min(bpm, MaxBPM), MinBPM)
}

// Valid reports whether the numerator is 1..32 and the denominator is a power
// of two up to 32.
func (t TimeSignature) Valid() bool {
	switch t.Denominator {
	case 1, 2, 4, 8, 16, 32:
		return t.Numerator >= 1 && t.Numerator <= 32
	}
	return false
}

func (t Transport) SetBPM(bpm float64) Transport {
	t.BPM = ClampBPM(bpm)
	return t
}

// SetTimeSignature changes the meter; an invalid one leaves t unchanged.
func (t Transport) SetTimeSignature(ts TimeSignature) Transport {
	if ts.Valid() {
		t.TimeSignature = ts
	}
	return t
}

func (t Transport) Data() TransportData {
	bpm, ts := t.BPM, t.TimeSignature
	loop, metronome := t.LoopEnabled, t.MetronomeEnabled
	return TransportData{BPM: &bpm, TimeSignature: &ts, LoopEnabled: &loop, MetronomeEnabled: &metronome}
}

// State repairs the saved transport settings: missing fields take the
// defaults, the tempo is clamped and an invalid meter becomes 4/4.
func (d TransportData) State() Transport {
	ret := DefaultTransport()
	if d.BPM != nil {
		ret = ret.SetBPM(*d.BPM)
	}
	if d.TimeSignature != nil {
		ret = ret.SetTimeSignature(*d.TimeSignature)
	}
	if d.LoopEnabled != nil {
		ret.LoopEnabled = *d.LoopEnabled
	}
	if d.MetronomeEnabled != nil {
		ret.MetronomeEnabled = *d.MetronomeEnabled
	}
	return ret
}
