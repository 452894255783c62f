package events

import (
	"sync"
	"time"

	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/types"
)

// Reasons of the run timeline events.
const (
	RunStarted         = "RunStarted"
	SteadyStateChecked = "SteadyStateChecked"
	PhaseTransition    = "PhaseTransition"
	ChaosInjected      = "ChaosInjected"
	AbortTriggered     = "AbortTriggered"
	CleanupCompleted   = "CleanupCompleted"
	RunCompleted       = "RunCompleted"
)

// Recorder collects the timeline of one scenario execution. Events end up in
// the run report and are logged as they happen.
type Recorder struct {
	mu     sync.Mutex
	events []types.RunEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one event to the timeline and logs it
func (r *Recorder) Record(reason, message string) {
	r.mu.Lock()
	r.events = append(r.events, types.RunEvent{Time: time.Now(), Reason: reason, Message: message})
	r.mu.Unlock()
	log.Infof("[Event]: %s: %s", reason, message)
}

// Events returns a copy of the timeline in record order
func (r *Recorder) Events() []types.RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.RunEvent, len(r.events))
	copy(out, r.events)
	return out
}
