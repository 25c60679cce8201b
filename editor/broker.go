package editor

import (
	"os"
	"time"

	"github.com/stepseq/stepseq"
)

type (
	// Broker is the message broker between the model and the rest of the
	// program. The model owner goroutine reads ToModel and passes the messages
	// to Model.ProcessMsg; observers read ToGUI to learn about every change of
	// the domains. Sends never block: if a channel is full, the message is
	// dropped, as the next change carries the whole state anyway.
	Broker struct {
		ToModel chan MsgToModel
		ToGUI   chan Change
	}

	// MsgToModel is a message sent to the model, usually from a goroutine
	// that finished some work in the background.
	MsgToModel struct {
		Data any
	}

	// SampleLoaded tells that the resource Sample is ready to be used as the
	// sample of Channel.
	SampleLoaded struct {
		Channel stepseq.ChannelID
		Sample  stepseq.SampleRef
	}

	// SampleLoadFailed tells that loading a sample in the background failed.
	SampleLoadFailed struct {
		Channel stepseq.ChannelID
		Err     error
	}

	// Change carries the state of one domain after a commit, an undo, a redo
	// or a reset, or the transport settings after they changed.
	Change struct {
		Scope     Scope
		Snapshot  stepseq.Snapshot
		Transport stepseq.Transport
		CanUndo   bool
		CanRedo   bool
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToModel: make(chan MsgToModel, 1024),
		ToGUI:   make(chan Change, 1024),
	}
}

// LoadSampleFile checks the sample file in the background and posts the result
// to ToModel. The load completes later, as an independent commit, when the
// model processes the message.
func (b *Broker) LoadSampleFile(channel stepseq.ChannelID, path string) {
	go func() {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			err = &os.PathError{Op: "load sample", Path: path, Err: os.ErrInvalid}
		}
		if err != nil {
			TrySend(b.ToModel, MsgToModel{Data: SampleLoadFailed{Channel: channel, Err: err}})
			return
		}
		TrySend(b.ToModel, MsgToModel{Data: SampleLoaded{Channel: channel, Sample: stepseq.SampleRef(path)}})
	}()
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
