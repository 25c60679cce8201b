/*
Package editor contains the versioned model of the step sequencer editor.

The Model owns the whole editable state of a project: the channel domain (the
drum patterns) and the playlist domain (the arrangement). Both domains live in
one History, a bounded, linear log of stepseq.Snapshots with a cursor, so that
undo and redo walk through changes to either domain in the order they were
made.

Callers do not modify the snapshots directly. Model.Channels() and
Model.Playlist() return views of the model with Actions and Ints that compute
a candidate next state of their own domain with the pure operations of package
stepseq and commit it to the History, tagged with the scope of the domain.
After every change, the model publishes the new state of the domains to the
Broker, so that observers can redraw. For example,
model.Channels().Toggle(1, 0, 3).Do() flips the fourth step of the first
channel of pattern 1, and model.Undo().Do() flips it back.

The Model is not safe for concurrent use: it is meant to be owned by a single
goroutine, which also processes the messages arriving in Broker.ToModel.
*/
package editor
