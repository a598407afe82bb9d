package assetpack

import (
	stdmath "math"
	"sync/atomic"

	"github.com/spaghettifunk/epoch/engine/math"
)

// Progress is a fraction in [0, 1] written by a build and read from any
// goroutine. It never moves backwards.
type Progress struct {
	bits atomic.Uint64
}

func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) Value() float64 {
	if p == nil {
		return 0
	}
	return stdmath.Float64frombits(p.bits.Load())
}

// Add advances the progress by delta. Negative deltas are ignored.
func (p *Progress) Add(delta float64) {
	if p == nil || !(delta > 0) {
		return
	}
	for {
		old := p.bits.Load()
		next := math.Saturate(stdmath.Float64frombits(old) + delta)
		if p.bits.CompareAndSwap(old, stdmath.Float64bits(next)) {
			return
		}
	}
}

// Advance moves the progress to v if v is ahead of the current value.
func (p *Progress) Advance(v float64) {
	if p == nil {
		return
	}
	v = math.Saturate(v)
	for {
		old := p.bits.Load()
		if stdmath.Float64frombits(old) >= v {
			return
		}
		if p.bits.CompareAndSwap(old, stdmath.Float64bits(v)) {
			return
		}
	}
}

// Complete sets the progress to exactly 1.
func (p *Progress) Complete() {
	p.Advance(1)
}
