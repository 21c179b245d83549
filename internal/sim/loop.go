package sim

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/dynamo"
)

// TickFunc is called once per loop tick with the target timestep in seconds.
type TickFunc func(dt float64)

// Loop drives tick handlers on a dedicated goroutine at a target rate.
// Other goroutines hand work to it through Do and DoSync; queued actions
// run on the loop goroutine before the next tick, so they never interleave
// with a step.
//
// A paused loop still drains queued actions but does not tick, except for
// ticks requested with Step.
type Loop struct {
	name string
	log  *zap.Logger

	interval atomic.Int64
	running  atomic.Bool
	countdwn atomic.Int64
	fps      atomic.Uint64
	ticks    atomic.Int64

	mu       sync.Mutex
	queue    []func()
	handlers []TickFunc
	stopped  bool

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(name string, targetFPS int, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loop{
		name: name,
		log:  log,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.SetTargetFPS(targetFPS)
	return l
}

func (l *Loop) Name() string { return l.name }

// SetTargetFPS changes the tick rate; values below 1 are raised to 1.
func (l *Loop) SetTargetFPS(fps int) {
	if fps < 1 {
		fps = 1
	}
	l.interval.Store(int64(time.Second) / int64(fps))
}

func (l *Loop) TargetFPS() int {
	return int(int64(time.Second) / l.interval.Load())
}

// DeltaTime is the target timestep in seconds.
func (l *Loop) DeltaTime() float64 {
	return time.Duration(l.interval.Load()).Seconds()
}

// MeasuredFPS is a smoothed rate of the ticks actually achieved.
func (l *Loop) MeasuredFPS() float64 { return math.Float64frombits(l.fps.Load()) }

func (l *Loop) Ticks() int64  { return l.ticks.Load() }
func (l *Loop) Running() bool { return l.running.Load() }

// Connect registers a tick handler. Handlers run in registration order.
func (l *Loop) Connect(fn TickFunc) {
	l.mu.Lock()
	l.handlers = append(l.handlers, fn)
	l.mu.Unlock()
}

// Start launches the loop goroutine. With run false the loop starts paused.
// The loop exits when ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context, run bool) {
	l.running.Store(run)
	go l.run(ctx)
	l.log.Debug("loop started", zap.String("loop", l.name), zap.Int("target_fps", l.TargetFPS()))
}

func (l *Loop) Pause() { l.running.Store(false) }

func (l *Loop) Resume() {
	l.running.Store(true)
	l.nudge()
}

// Step queues n ticks to run while the loop is paused.
func (l *Loop) Step(n int) {
	if n < 1 {
		return
	}
	l.countdwn.Store(int64(n))
	l.nudge()
}

// Do queues fn to run on the loop goroutine.
func (l *Loop) Do(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return dynamo.ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.nudge()
	return nil
}

// DoSync queues fn and waits for it to run.
func (l *Loop) DoSync(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := l.Do(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return dynamo.ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the loop and waits for the goroutine to exit. Actions still
// queued are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) nudge() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		l.running.Store(false)
		close(l.done)
		l.log.Debug("loop finished", zap.String("loop", l.name), zap.Int64("ticks", l.ticks.Load()))
	}()

	idle := time.NewTimer(time.Hour)
	idle.Stop()
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		default:
		}

		var wait time.Duration
		switch {
		case l.running.Load():
			start := time.Now()
			l.tick()
			frame := time.Since(start)
			if frame > 0 {
				l.smoothFPS(1 / frame.Seconds())
			}
			wait = time.Duration(l.interval.Load()) - frame
		case l.countdwn.Load() > 0:
			l.countdwn.Add(-1)
			l.tick()
			continue
		default:
			if l.drain() > 0 {
				continue
			}
			wait = 10 * time.Millisecond
		}
		if wait <= 0 {
			continue
		}

		idle.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-l.wake:
			idle.Stop()
		case <-idle.C:
		}
	}
}

func (l *Loop) smoothFPS(instant float64) {
	prev := l.MeasuredFPS()
	next := instant
	if prev > 0 {
		next = prev*0.95 + instant*0.05
	}
	l.fps.Store(math.Float64bits(next))
}

// drain runs and clears the queued actions, returning how many ran.
func (l *Loop) drain() int {
	l.mu.Lock()
	actions := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range actions {
		fn()
	}
	return len(actions)
}

func (l *Loop) tick() {
	l.drain()

	l.mu.Lock()
	handlers := l.handlers
	l.mu.Unlock()

	dt := l.DeltaTime()
	for _, fn := range handlers {
		fn(dt)
	}
	l.ticks.Add(1)
}
