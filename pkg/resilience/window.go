package resilience

import (
	"sync"
	"time"
)

// outcome classifies a single pass through the circuit breaker
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
	outcomeRejection
	outcomeFallback
)

// WindowCounts aggregates call outcomes over the rolling window
type WindowCounts struct {
	Successes  uint64 `json:"successes"`
	Failures   uint64 `json:"failures"`
	Timeouts   uint64 `json:"timeouts"`
	Rejections uint64 `json:"rejections"`
	Fallbacks  uint64 `json:"fallbacks"`
}

// Completed returns the number of calls that ran to completion.
// Rejections never reach the protected call and are not counted.
func (c WindowCounts) Completed() uint64 {
	return c.Successes + c.Failures + c.Timeouts
}

// ErrorPercentage returns the share of completed calls that failed or
// timed out, as a percentage
func (c WindowCounts) ErrorPercentage() float64 {
	completed := c.Completed()
	if completed == 0 {
		return 0
	}
	return float64(c.Failures+c.Timeouts) / float64(completed) * 100
}

func (c *WindowCounts) add(other WindowCounts) {
	c.Successes += other.Successes
	c.Failures += other.Failures
	c.Timeouts += other.Timeouts
	c.Rejections += other.Rejections
	c.Fallbacks += other.Fallbacks
}

// rollingWindow tracks call outcomes in fixed-duration buckets. Expired
// buckets are discarded lazily on the next record or snapshot; no
// background goroutine runs.
type rollingWindow struct {
	mu             sync.Mutex
	buckets        []WindowCounts
	bucketDuration time.Duration
	head           int
	headStart      time.Time
	now            func() time.Time
}

func newRollingWindow(duration time.Duration, bucketCount int, now func() time.Time) *rollingWindow {
	if duration <= 0 {
		duration = DefaultWindowDuration
	}
	if bucketCount <= 0 {
		bucketCount = DefaultWindowBuckets
	}
	if now == nil {
		now = time.Now
	}
	return &rollingWindow{
		buckets:        make([]WindowCounts, bucketCount),
		bucketDuration: duration / time.Duration(bucketCount),
		headStart:      now(),
		now:            now,
	}
}

func (w *rollingWindow) record(o outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate()
	switch o {
	case outcomeSuccess:
		w.buckets[w.head].Successes++
	case outcomeFailure:
		w.buckets[w.head].Failures++
	case outcomeTimeout:
		w.buckets[w.head].Timeouts++
	case outcomeRejection:
		w.buckets[w.head].Rejections++
	case outcomeFallback:
		w.buckets[w.head].Fallbacks++
	}
}

func (w *rollingWindow) snapshot() WindowCounts {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate()
	var total WindowCounts
	for _, bucket := range w.buckets {
		total.add(bucket)
	}
	return total
}

func (w *rollingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.buckets {
		w.buckets[i] = WindowCounts{}
	}
	w.head = 0
	w.headStart = w.now()
}

// rotate advances the head past buckets that have aged out of the
// window. Caller must hold mu.
func (w *rollingWindow) rotate() {
	elapsed := w.now().Sub(w.headStart)
	if elapsed < w.bucketDuration {
		return
	}

	steps := int64(elapsed / w.bucketDuration)
	if steps >= int64(len(w.buckets)) {
		for i := range w.buckets {
			w.buckets[i] = WindowCounts{}
		}
		w.head = 0
		w.headStart = w.now()
		return
	}

	for i := int64(0); i < steps; i++ {
		w.head = (w.head + 1) % len(w.buckets)
		w.buckets[w.head] = WindowCounts{}
	}
	w.headStart = w.headStart.Add(time.Duration(steps) * w.bucketDuration)
}
