package progress

import (
	"sync"
	"time"
)

// Snapshot is the fixed record handed to observers. Derived metrics are
// computed at dispatch time; divide-by-zero inputs yield zeros, never NaN.
type Snapshot struct {
	Status     string
	FileName   string
	Completed  int64
	Total      int64
	Percentage float64
	Elapsed    float64
	ETA        float64
	Speed      float64
	Terminal   bool
}

type Observer interface {
	OnProgress(s Snapshot)
}

type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnProgress(s Snapshot) { f(s) }

const defaultBytesPerSegment = 1024 * 1024

// Tracker aggregates byte and segment counters for a single transfer and
// fans throttled snapshots out to its observers. Completed bytes only ever
// grow; the total estimate may be revised until the tracker is terminal.
type Tracker struct {
	mu              sync.Mutex
	completed       int64
	total           int64
	bytesPerSegment int64
	startTime       time.Time
	lastNotify      time.Time
	status          string
	fileName        string
	updateInterval  time.Duration
	terminal        bool
	fullNotified    bool
	observers       []Observer
}

func NewTracker(updateInterval time.Duration, observers ...Observer) *Tracker {
	if updateInterval <= 0 {
		updateInterval = 5 * time.Second
	}
	return &Tracker{
		bytesPerSegment: defaultBytesPerSegment,
		startTime:       time.Now(),
		status:          "initializing",
		updateInterval:  updateInterval,
		observers:       observers,
	}
}

func (t *Tracker) AddObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// AddBytes advances the completed counter by delta bytes. Negative deltas
// are ignored so completed bytes stay monotonic.
func (t *Tracker) AddBytes(delta int64, status string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	if delta > 0 {
		t.completed += delta
	}
	if status != "" {
		t.status = status
	}
	s, observers := t.pendingLocked(false)
	t.mu.Unlock()
	notify(s, observers)
}

// AddSegments advances progress by whole segments, converted through the
// per-segment byte estimate.
func (t *Tracker) AddSegments(n int64, status string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	if n > 0 {
		t.completed += n * t.bytesPerSegment
	}
	if status != "" {
		t.status = status
	}
	s, observers := t.pendingLocked(false)
	t.mu.Unlock()
	notify(s, observers)
}

func (t *Tracker) SetBytesPerSegment(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bytes > 0 {
		t.bytesPerSegment = bytes
	}
}

// SetTotal revises the total byte estimate. Valid until the tracker reaches
// a terminal state, after which the total is fixed.
func (t *Tracker) SetTotal(total int64) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	t.total = total
	s, observers := t.pendingLocked(true)
	t.mu.Unlock()
	notify(s, observers)
}

func (t *Tracker) SetStatus(status string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	t.status = status
	s, observers := t.pendingLocked(false)
	t.mu.Unlock()
	notify(s, observers)
}

func (t *Tracker) SetFileName(name string) {
	t.mu.Lock()
	t.fileName = name
	s, observers := t.pendingLocked(true)
	t.mu.Unlock()
	notify(s, observers)
}

// Complete marks the tracker terminal with status "completed". When the true
// output size is known it corrects both counters to it, so observers see an
// exact 100% final snapshot.
func (t *Tracker) Complete(finalSize int64) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	if finalSize > 0 {
		t.total = finalSize
		t.completed = finalSize
	} else if t.total > 0 && t.completed < t.total {
		t.completed = t.total
	}
	t.status = "completed"
	t.terminal = true
	s, observers := t.pendingLocked(true)
	t.mu.Unlock()
	notify(s, observers)
}

// Fail marks the tracker terminal. The status text is the definitive
// user-visible failure explanation.
func (t *Tracker) Fail(status string) {
	t.mu.Lock()
	if t.terminal {
		t.mu.Unlock()
		return
	}
	if status == "" {
		status = "failed"
	}
	t.status = status
	t.terminal = true
	s, observers := t.pendingLocked(true)
	t.mu.Unlock()
	notify(s, observers)
}

func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	elapsed := time.Since(t.startTime).Seconds()
	var percentage float64
	if t.total > 0 {
		percentage = float64(t.completed) / float64(t.total)
		if percentage > 1 {
			percentage = 1
		}
		if percentage < 0 {
			percentage = 0
		}
		percentage *= 100
	}
	var eta float64
	if percentage > 0 {
		eta = elapsed * (100 - percentage) / percentage
	}
	var speed float64
	if elapsed > 0 {
		speed = float64(t.completed) / elapsed
	}
	return Snapshot{
		Status:     t.status,
		FileName:   t.fileName,
		Completed:  t.completed,
		Total:      t.total,
		Percentage: percentage,
		Elapsed:    elapsed,
		ETA:        eta,
		Speed:      speed,
		Terminal:   t.terminal,
	}
}

// pendingLocked applies the throttle and captures the snapshot and observer
// list for dispatch after the lock is released. The terminal snapshot and
// the first crossing of the total always go out regardless of the interval;
// a revised total that re-opens the gap re-arms the crossing dispatch.
func (t *Tracker) pendingLocked(force bool) (Snapshot, []Observer) {
	now := time.Now()
	full := t.total > 0 && t.completed >= t.total
	final := t.terminal || (full && !t.fullNotified)
	if !force && !final && now.Sub(t.lastNotify) < t.updateInterval {
		return Snapshot{}, nil
	}
	t.fullNotified = full
	t.lastNotify = now
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	return t.snapshotLocked(), observers
}

// notify runs observer callbacks. The tracker lock must not be held here: a
// slow or re-entrant observer must never block mutators.
func notify(s Snapshot, observers []Observer) {
	for _, o := range observers {
		o.OnProgress(s)
	}
}
