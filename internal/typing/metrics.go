package typing

import (
	"math"
	"sync"
	"time"
)

// charsPerWord is the standard "5 characters = 1 word" convention.
const charsPerWord = 5

// Metrics is a point-in-time view of a test in progress.
type Metrics struct {
	CorrectChars int
	TypedChars   int
	Accuracy     int
	WPM          int
	Complete     bool
}

// Compute derives live metrics for typed against reference after elapsed time
// since the first keystroke. Characters are compared position by position.
func Compute(reference, typed string, elapsed time.Duration) Metrics {
	ref, in := []rune(reference), []rune(typed)

	correct := 0
	for i, r := range in {
		if i < len(ref) && r == ref[i] {
			correct++
		}
	}

	return Metrics{
		CorrectChars: correct,
		TypedChars:   len(in),
		Accuracy:     Accuracy(correct, len(in)),
		WPM:          WPM(correct, elapsed),
		Complete:     len(in) >= len(ref),
	}
}

// Accuracy returns the rounded percentage of correct characters, 100 when nothing was typed.
func Accuracy(correct, typed int) int {
	if typed == 0 {
		return 100
	}
	return int(math.Round(float64(correct) / float64(typed) * 100))
}

// WPM returns rounded words per minute; 0 when no time has elapsed.
func WPM(correct int, elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / charsPerWord / minutes))
}

// Tracker follows a single test as keystrokes arrive. The clock starts on the
// first keystroke, not when the tracker is created. Offending positions are
// remembered even if the user later fixes them.
type Tracker struct {
	mu        sync.Mutex
	reference []rune
	now       func() time.Time
	startedAt time.Time
	typed     string
	errors    map[int]struct{}
}

func NewTracker(reference string, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		reference: []rune(reference),
		now:       now,
		errors:    make(map[int]struct{}),
	}
}

// Input records the full current contents of the input field.
func (t *Tracker) Input(typed string) Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.startedAt.IsZero() && typed != "" {
		t.startedAt = t.now()
	}

	for i, r := range []rune(typed) {
		if i >= len(t.reference) || r != t.reference[i] {
			t.errors[i] = struct{}{}
		}
	}
	t.typed = typed

	return t.metrics()
}

// Metrics returns the metrics for the latest input.
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.metrics()
}

// Errors returns how many distinct positions were ever typed incorrectly.
func (t *Tracker) Errors() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.errors)
}

// Elapsed is the time since the first keystroke.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.elapsed()
}

func (t *Tracker) elapsed() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return t.now().Sub(t.startedAt)
}

func (t *Tracker) metrics() Metrics {
	return Compute(string(t.reference), t.typed, t.elapsed())
}
