// Package flow is the submission presentation controller: an explicit
// state machine deciding when a submission is shown as provisional vs.
// confirmed and how background failures surface.
//
// States: empty → submitting → provisional|confirmed, then
// provisional → confirmed|failed, and confirmed|failed → empty on an
// explicit new entry. In optimistic mode the provisional snapshot is
// exposed immediately and persistence runs in the background; in confirm
// mode the caller waits for the canonical record.
package flow

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nandakv/regio/internal/models"
	"github.com/nandakv/regio/internal/service"
)

type State string

const (
	StateEmpty       State = "empty"
	StateSubmitting  State = "submitting"
	StateProvisional State = "provisional"
	StateConfirmed   State = "confirmed"
	StateFailed      State = "failed"
)

// Mode selects optimistic vs. confirm-first presentation.
type Mode string

const (
	ModeConfirm    Mode = "confirm"
	ModeOptimistic Mode = "optimistic"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConfirm, ModeOptimistic:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid flow mode %q, valid: confirm, optimistic", s)
	}
}

// validTransitions is the transition matrix, keyed by current state.
var validTransitions = map[State]map[State]bool{
	StateEmpty:       {StateSubmitting: true},
	StateSubmitting:  {StateProvisional: true, StateConfirmed: true, StateFailed: true},
	StateProvisional: {StateConfirmed: true, StateFailed: true},
	StateConfirmed:   {StateEmpty: true},
	StateFailed:      {StateEmpty: true},
}

// TransitionError reports an attempt to move a flow where the matrix
// forbids it.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid flow transition %s -> %s", e.From, e.To)
}

// Submitter is the slice of the submission service the controller drives.
type Submitter interface {
	Prepare(draft models.Draft) (*service.Prepared, error)
	Persist(p *service.Prepared) (*models.Registrant, error)
}

// Snapshot is the externally visible view of one submission flow.
// A failed optimistic flow keeps its provisional record and carries the
// failure message alongside it rather than rolling back.
type Snapshot struct {
	State  State              `json:"state"`
	Record *models.Registrant `json:"record,omitempty"`
	Error  string             `json:"error,omitempty"`
}

type entry struct {
	state   State
	record  models.Registrant
	err     error
	updated time.Time
}

// Controller tracks in-flight and settled submission flows keyed by the
// anonymous uid.
type Controller struct {
	mode Mode
	svc  Submitter
	ids  service.IdentityProvider

	mu    sync.RWMutex
	flows map[string]*entry
}

func NewController(mode Mode, svc Submitter, ids service.IdentityProvider) *Controller {
	return &Controller{mode: mode, svc: svc, ids: ids, flows: make(map[string]*entry)}
}

// Mode returns the configured presentation mode.
func (c *Controller) Mode() Mode { return c.mode }

// Submit validates and starts a submission. Validation or identity
// failure returns an error with no flow created; the draft never left
// the empty state. In optimistic mode the returned snapshot is
// provisional and persistence continues in the background; in confirm
// mode the call blocks until the record is canonical or the flow failed.
func (c *Controller) Submit(draft models.Draft) (Snapshot, error) {
	p, err := c.svc.Prepare(draft)
	if err != nil {
		return Snapshot{State: StateEmpty}, err
	}

	uid := p.Record.ID
	c.mu.Lock()
	c.flows[uid] = &entry{state: StateSubmitting, record: p.Record, updated: time.Now()}
	c.mu.Unlock()

	if c.mode == ModeOptimistic {
		// Render as if it already succeeded; reconcile in the background.
		c.transition(uid, StateProvisional, nil, nil)
		go c.settle(uid, p)
		snap, _ := c.Get(uid)
		return snap, nil
	}

	c.settle(uid, p)
	snap, _ := c.Get(uid)
	if snap.State == StateFailed {
		return snap, c.flowErr(uid)
	}
	return snap, nil
}

// settle runs persistence and moves the flow to confirmed or failed.
// A rejected write is logged with its audit context before surfacing.
func (c *Controller) settle(uid string, p *service.Prepared) {
	rec, err := c.svc.Persist(p)
	if err != nil {
		var perr *service.PersistenceError
		if errors.As(err, &perr) {
			log.Printf("Warning: write rejected path=%s op=%s payload=%v: %v",
				perr.Path, perr.Operation, perr.Payload, perr.Err)
		} else {
			log.Printf("Warning: submission %s failed: %v", uid, err)
		}
		c.transition(uid, StateFailed, nil, err)
		return
	}
	c.transition(uid, StateConfirmed, rec, nil)
}

func (c *Controller) transition(uid string, to State, rec *models.Registrant, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.flows[uid]
	if !ok {
		return &TransitionError{From: StateEmpty, To: to}
	}
	if !validTransitions[e.state][to] {
		return &TransitionError{From: e.state, To: to}
	}
	e.state = to
	e.err = err
	e.updated = time.Now()
	if rec != nil {
		// Canonical record replaces the provisional one.
		e.record = *rec
	}
	return nil
}

// Get returns the snapshot for uid, when a flow exists.
func (c *Controller) Get(uid string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.flows[uid]
	if !ok {
		return Snapshot{State: StateEmpty}, false
	}
	rec := e.record
	snap := Snapshot{State: e.state, Record: &rec}
	if e.err != nil {
		snap.Error = e.err.Error()
	}
	return snap, true
}

// NewEntry discards a settled flow and signs the identity out, so the
// next submission is attributable to a fresh identity. Only confirmed
// and failed flows can be discarded.
func (c *Controller) NewEntry(uid string) error {
	c.mu.Lock()
	e, ok := c.flows[uid]
	if !ok {
		c.mu.Unlock()
		return &TransitionError{From: StateEmpty, To: StateEmpty}
	}
	if !validTransitions[e.state][StateEmpty] {
		from := e.state
		c.mu.Unlock()
		return &TransitionError{From: from, To: StateEmpty}
	}
	delete(c.flows, uid)
	c.mu.Unlock()

	c.ids.SignOut(uid)
	return nil
}

// Prune drops settled flows older than maxAge. Submitting and
// provisional flows are never pruned.
func (c *Controller) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for uid, e := range c.flows {
		if (e.state == StateConfirmed || e.state == StateFailed) && e.updated.Before(cutoff) {
			delete(c.flows, uid)
			n++
		}
	}
	return n
}

func (c *Controller) flowErr(uid string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.flows[uid]; ok {
		return e.err
	}
	return nil
}
