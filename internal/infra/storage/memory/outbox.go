package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	appoutbox "akwa/internal/app/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	nextRetry time.Time
	lastError string
}

// Outbox keeps event records in memory until the relay marks them sent.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

// stateStaged hides records of units that have not committed yet.
const stateStaged = "STAGED"

// Add appends record outside any unit; it is immediately claimable.
func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, state: appoutbox.StateNew})
	return nil
}

// stage appends a record invisible to Claim. release makes it claimable,
// undo drops it.
func (o *Outbox) stage(record appoutbox.EventRecord) (release func(), undo func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry := &outboxEntry{record: record, state: stateStaged}
	o.entries = append(o.entries, entry)
	release = func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if entry.state == stateStaged {
			entry.state = appoutbox.StateNew
		}
	}
	undo = func() { o.remove(record.ID) }
	return release, undo
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		due := e.state == appoutbox.StateNew || (e.state == appoutbox.StateFailed && !e.nextRetry.After(now))
		if !due {
			continue
		}
		e.state = appoutbox.StateClaimed
		return &appoutbox.Claimed{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

// MarkSent drops the record; sent records are not kept in memory.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.remove(id)
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = appoutbox.StateFailed
			e.attempts++
			e.nextRetry = next
			e.lastError = errMsg
			return nil
		}
	}
	return nil
}

// Pending reports how many committed records have not been sent yet.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.state != stateStaged {
			n++
		}
	}
	return n
}

func (o *Outbox) remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = slices.DeleteFunc(o.entries, func(e *outboxEntry) bool { return e.record.ID == id })
}

type outboxInUnit struct {
	box  *Outbox
	unit *Unit
}

func (v outboxInUnit) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if err := v.unit.writable(); err != nil {
		return err
	}
	release, undo := v.box.stage(record)
	v.unit.journal(undo)
	v.unit.onCommit(release)
	return nil
}

var (
	_ appoutbox.Outbox = outboxInUnit{}
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Source = (*Outbox)(nil)
)
