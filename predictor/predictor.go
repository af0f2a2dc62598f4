// Package predictor implements the two-bit saturating branch predictor
// and the AlwaysNotTaken fallback heuristic.
package predictor

const bufferSize = 4096

// Heuristic selects the prediction strategy.
type Heuristic uint8

const (
	BufferedPrediction Heuristic = iota
	AlwaysNotTaken
)

type state uint8

const (
	stateStrong state = iota
	stateWeak
	stateWeakNot
	stateStrongNot
)

// Predictor is a 4096-entry table of 2-bit saturating counters,
// indexed by pc mod 4096 and initialized to Weak-Taken.
type Predictor struct {
	heuristic Heuristic
	buffer    [bufferSize]state
}

// New creates a predictor under the given heuristic.
func New(heuristic Heuristic) *Predictor {
	p := &Predictor{heuristic: heuristic}
	for i := range p.buffer {
		p.buffer[i] = stateWeak
	}
	return p
}

// Predict reports whether the branch at pc is predicted taken.
func (p *Predictor) Predict(pc uint32) bool {
	if p.heuristic != BufferedPrediction {
		return false
	}
	switch p.buffer[pc%bufferSize] {
	case stateStrong, stateWeak:
		return true
	default:
		return false
	}
}

// Update adjusts the counter for pc toward Strong-Taken if the branch
// was taken, else toward Strong-NotTaken, saturating at either end.
func (p *Predictor) Update(pc uint32, taken bool) {
	if p.heuristic != BufferedPrediction {
		return
	}
	idx := pc % bufferSize
	if taken {
		switch p.buffer[idx] {
		case stateStrongNot:
			p.buffer[idx] = stateWeakNot
		case stateWeakNot:
			p.buffer[idx] = stateWeak
		case stateWeak:
			p.buffer[idx] = stateStrong
		case stateStrong:
			p.buffer[idx] = stateStrong
		}
	} else {
		switch p.buffer[idx] {
		case stateStrong:
			p.buffer[idx] = stateWeak
		case stateWeak:
			p.buffer[idx] = stateWeakNot
		case stateWeakNot:
			p.buffer[idx] = stateStrongNot
		case stateStrongNot:
			p.buffer[idx] = stateStrongNot
		}
	}
}
