package editor

import (
	"maps"
	"slices"

	"github.com/stepseq/stepseq"
)

type (
	// Releaser frees an audio resource that was handed to the editor, e.g.
	// closes an uploaded file or deletes a temporary copy.
	Releaser interface {
		Release(stepseq.SampleRef)
	}

	ReleaserFunc func(stepseq.SampleRef)

	// SamplePool tracks the sample resources owned by the editor. A resource
	// becomes owned when it is loaded into a channel, and is released once,
	// when no snapshot of the history refers to it anymore: after it was
	// replaced and the replacing change can no longer be undone, after the
	// future holding it was discarded, after a reset, or when the load that
	// brought it in did not change anything. Samples that were never adopted,
	// like the default kit, are never released.
	SamplePool struct {
		releaser Releaser
		owned    map[stepseq.SampleRef]struct{}
	}
)

func (f ReleaserFunc) Release(ref stepseq.SampleRef) { f(ref) }

func NewSamplePool(releaser Releaser) *SamplePool {
	return &SamplePool{releaser: releaser, owned: map[stepseq.SampleRef]struct{}{}}
}

// Adopt makes the editor the owner of ref.
func (p *SamplePool) Adopt(ref stepseq.SampleRef) {
	if ref == "" {
		return
	}
	p.owned[ref] = struct{}{}
}

func (p *SamplePool) Owned(ref stepseq.SampleRef) bool {
	_, ok := p.owned[ref]
	return ok
}

func (p *SamplePool) Len() int { return len(p.owned) }

// Collect releases every owned resource that live does not yield.
func (p *SamplePool) Collect(live func(yield func(stepseq.SampleRef) bool)) {
	if len(p.owned) == 0 {
		return
	}
	reachable := map[stepseq.SampleRef]struct{}{}
	live(func(ref stepseq.SampleRef) bool {
		if _, ok := p.owned[ref]; ok {
			reachable[ref] = struct{}{}
		}
		return len(reachable) < len(p.owned)
	})
	var dead []stepseq.SampleRef
	for ref := range p.owned {
		if _, ok := reachable[ref]; !ok {
			dead = append(dead, ref)
		}
	}
	p.release(dead)
}

// Close releases every resource still owned.
func (p *SamplePool) Close() {
	p.release(slices.Collect(maps.Keys(p.owned)))
}

func (p *SamplePool) release(refs []stepseq.SampleRef) {
	slices.Sort(refs)
	for _, ref := range refs {
		delete(p.owned, ref)
		if p.releaser != nil {
			p.releaser.Release(ref)
		}
	}
}
