package ws

import (
	"fmt"
)

type resyncReason struct {
	Expected int64
	Received int64
}

type resyncSignal struct {
	Gaps         uint64
	TotalUpdates uint64
	Reasons      []resyncReason
}

// resyncPolicy watches the stream of UPDATE frames for gaps in stateID
// coverage and decides when the client should abandon incremental catch-up
// and request a wholesale sync.
type resyncPolicy struct {
	totalUpdates uint64
	gaps         uint64
	pending      bool
	reasons      []resyncReason
}

const resyncReasonLimit = 8

func newResyncPolicy() *resyncPolicy {
	return &resyncPolicy{reasons: make([]resyncReason, 0, resyncReasonLimit)}
}

func (p *resyncPolicy) noteUpdate() {
	if p == nil {
		return
	}
	if p.totalUpdates == ^uint64(0) {
		p.totalUpdates = p.totalUpdates / 2
		p.gaps = p.gaps / 2
	}
	p.totalUpdates++
}

func (p *resyncPolicy) noteGap(expected, received int64) {
	if p == nil {
		return
	}
	p.gaps++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, resyncReason{Expected: expected, Received: received})
	}
	// A single gap already means the held log can never become contiguous
	// again on its own, so every gap arms the policy.
	p.pending = true
}

// reset clears the policy after a wholesale sync restored contiguity.
func (p *resyncPolicy) reset() {
	if p == nil {
		return
	}
	p.totalUpdates = 0
	p.gaps = 0
	p.pending = false
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
}

func (p *resyncPolicy) consume() (resyncSignal, bool) {
	if p == nil || !p.pending {
		return resyncSignal{}, false
	}
	signal := resyncSignal{
		Gaps:         p.gaps,
		TotalUpdates: p.totalUpdates,
		Reasons:      append([]resyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.gaps = 0
	p.totalUpdates = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s resyncSignal) summary() string {
	if s.Gaps == 0 && s.TotalUpdates == 0 {
		return ""
	}
	return fmt.Sprintf("gaps=%d total_updates=%d reasons=%v", s.Gaps, s.TotalUpdates, s.Reasons)
}
