package editor

import "strconv"

// Enabler is an interface that defines a single Enabled() method, which is used
// by the UI to check if UI Action/Int etc. is enabled or not.
type Enabler interface {
	Enabled() bool
}

// Action

type (
	// Action describes a user action that can be performed on the model, which
	// can be initiated by calling the Do() method. It is usually initiated by a
	// button press, a key or an edit command. Action advertises whether it is
	// enabled, so UI can e.g. gray out buttons when the underlying action would
	// not change anything. The underlying Doer can optionally implement the
	// Enabler interface to decide if the action is enabled or not; if it does
	// not implement the Enabler interface, the action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}
)

func MakeAction(doer Doer) Action { return Action{doer: doer} }

// Do performs the action if it is enabled, and reports whether it was.
func (a Action) Do() bool {
	if !a.Enabled() {
		return false
	}
	a.doer.Do()
	return true
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// Int

type (
	// Int represents an integer value in the editor model e.g. the pattern
	// width or the playlist height. It is a wrapper around an IntValue
	// interface that provides methods to manipulate the value, but Int guards
	// that all changes are within the range of the underlying IntValue
	// implementation and that SetValue is not called when the value is
	// unchanged.
	Int struct {
		value IntValue
	}

	IntValue interface {
		Value() int
		SetValue(int) (changed bool)
		Range() RangeInclusive
	}
)

func MakeInt(value IntValue) Int { return Int{value} }

func (v Int) Add(delta int) (changed bool) {
	return v.SetValue(v.Value() + delta)
}

func (v Int) SetValue(value int) (changed bool) {
	if v.value == nil {
		return false
	}
	value = v.Range().Clamp(value)
	if value == v.Value() {
		return false
	}
	return v.value.SetValue(value)
}

func (v Int) Range() RangeInclusive {
	if v.value == nil {
		return RangeInclusive{0, 0}
	}
	return v.value.Range()
}

func (v Int) Value() int {
	if v.value == nil {
		return 0
	}
	return v.value.Value()
}

func (v Int) String() string {
	return strconv.Itoa(v.Value())
}

// Bool

type (
	// Bool represents a boolean value in the editor model e.g. whether the
	// playback loops.
	Bool struct {
		value BoolValue
	}

	BoolValue interface {
		Value() bool
		SetValue(bool) (changed bool)
	}
)

func MakeBool(value BoolValue) Bool { return Bool{value} }

func (v Bool) SetValue(value bool) (changed bool) {
	if v.value == nil || v.value.Value() == value {
		return false
	}
	return v.value.SetValue(value)
}

func (v Bool) Toggle() bool { return v.SetValue(!v.Value()) }

func (v Bool) Value() bool {
	if v.value == nil {
		return false
	}
	return v.value.Value()
}

// String

type (
	String struct {
		value StringValue
	}

	StringValue interface {
		Value() string
		SetValue(string) (changed bool)
	}
)

func MakeString(value StringValue) String { return String{value: value} }

func (v String) SetValue(value string) (changed bool) {
	if v.value == nil || v.value.Value() == value {
		return false
	}
	return v.value.SetValue(value)
}

func (v String) Value() string {
	if v.value == nil {
		return ""
	}
	return v.value.Value()
}

// RangeInclusive represents a range of integers [Min, Max], inclusive.
type RangeInclusive struct{ Min, Max int }

func (r RangeInclusive) Clamp(value int) int { return max(min(value, r.Max), r.Min) }
