package selection

import "strings"

type State string

const (
	StateUnset     State = "UNSET"
	StateDefaulted State = "DEFAULTED"
)

// Pair is a competition/group choice.
type Pair struct {
	Competition string
	Group       string
}

func (p Pair) IsZero() bool {
	return strings.TrimSpace(p.Competition) == "" && strings.TrimSpace(p.Group) == ""
}

func (p Pair) Equal(other Pair) bool {
	return strings.EqualFold(strings.TrimSpace(p.Competition), strings.TrimSpace(other.Competition)) &&
		strings.EqualFold(strings.TrimSpace(p.Group), strings.TrimSpace(other.Group))
}

// Input is what the caller knows when the latch is evaluated.
type Input struct {
	// Explicit is the user's own choice, nil when none was made.
	Explicit *Pair
	// Available lists the pairs present in the current context.
	Available []Pair
}

// Latch applies a preferred competition/group pair once per competition-scope session.
// It is not safe for concurrent use; the owner serializes access.
type Latch struct {
	preferred Pair
	state     State
}

func NewLatch(preferred Pair) *Latch {
	return &Latch{preferred: preferred, state: StateUnset}
}

func (l *Latch) State() State {
	return l.state
}

func (l *Latch) Preferred() Pair {
	return l.preferred
}

// Evaluate emits the preferred pair on the UNSET to DEFAULTED transition only: the latch
// must be unset, the caller must not have chosen explicitly, and the preferred pair must be
// available. An explicit choice moves the latch to DEFAULTED without emitting.
func (l *Latch) Evaluate(in Input) (Pair, bool) {
	if l.state == StateDefaulted {
		return Pair{}, false
	}
	if in.Explicit != nil {
		l.state = StateDefaulted
		return Pair{}, false
	}
	if l.preferred.IsZero() || !containsPair(in.Available, l.preferred) {
		return Pair{}, false
	}

	l.state = StateDefaulted
	return l.preferred, true
}

// Select records an explicit user choice.
func (l *Latch) Select() {
	l.state = StateDefaulted
}

// EnterGlobal switches to the global, no-competition scope and re-arms the default.
func (l *Latch) EnterGlobal() {
	l.state = StateUnset
}

func containsPair(items []Pair, target Pair) bool {
	for _, item := range items {
		if item.Equal(target) {
			return true
		}
	}
	return false
}
