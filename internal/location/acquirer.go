package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shenikar/relief_locator/internal/geo"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle      State = "idle"
	StateDetecting State = "detecting"
	StateDetected  State = "detected"
	StateFallback  State = "fallback"
)

// Reason - причина перехода в Fallback.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnsupported         Reason = "unsupported"
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPositionUnavailable Reason = "position_unavailable"
	ReasonTimeout             Reason = "timeout"
)

// Origin - откуда взялась текущая координата.
type Origin string

const (
	OriginNone     Origin = ""
	OriginDetected Origin = "detected"
	OriginFallback Origin = "fallback"
)

// Snapshot - лучшее известное положение. Всегда копируется целиком.
type Snapshot struct {
	State      State
	Coordinate geo.Coordinate
	Origin     Origin
	Reason     Reason
	Accuracy   float64
	FixTime    time.Time
	UpdatedAt  time.Time
}

// Resolved сообщает, что координата уже есть.
func (s Snapshot) Resolved() bool {
	return s.State == StateDetected || s.State == StateFallback
}

// Acquirer параллельно запускает разовый запрос положения и непрерывное
// наблюдение и отдаёт последнее положение. Fallback конечен до Restart.
type Acquirer struct {
	source   Source
	fallback geo.Coordinate
	opts     Options
	logger   *logrus.Logger
	now      func() time.Time

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64 // bumped on Stop; stale goroutines compare against it
	cancel  context.CancelFunc
	subs    map[int]chan Snapshot
	nextSub int
	wg      sync.WaitGroup
}

func NewAcquirer(source Source, fallback geo.Coordinate, opts Options, logger *logrus.Logger) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if source == nil {
		source = Unsupported{}
	}
	return &Acquirer{
		source:   source,
		fallback: fallback,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		snap:     Snapshot{State: StateIdle},
		subs:     make(map[int]chan Snapshot),
	}
}

// Start переводит Idle в Detecting. В остальных состояниях ничего не делает.
func (a *Acquirer) Start(ctx context.Context) {
	a.mu.Lock()
	if a.snap.State != StateIdle {
		a.mu.Unlock()
		return
	}

	log := a.logger.WithFields(logrus.Fields{"component": "location", "method": "Start"})

	if !a.source.Available() {
		a.fallbackLocked(ReasonUnsupported)
		a.mu.Unlock()
		log.Warn("Location capability unavailable, using fallback location")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	gen := a.gen
	requestedAt := a.now()
	a.setLocked(Snapshot{State: StateDetecting})
	a.wg.Add(2)
	a.mu.Unlock()

	log.Info("Detecting location")
	go a.runOneShot(runCtx, gen, requestedAt)
	go a.runWatch(runCtx, gen)
}

// Stop отменяет наблюдение. После возврата Stop обновления не применяются.
// Незавершённое определение возвращает автомат в Idle, чтобы Start снова работал.
func (a *Acquirer) Stop() {
	a.mu.Lock()
	a.gen++
	cancel := a.cancel
	a.cancel = nil
	if a.snap.State == StateDetecting {
		a.setLocked(Snapshot{State: StateIdle})
	}
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
}

// Restart останавливает текущее определение и начинает заново с Idle.
func (a *Acquirer) Restart(ctx context.Context) {
	a.Stop()
	a.mu.Lock()
	a.setLocked(Snapshot{State: StateIdle})
	a.mu.Unlock()
	a.Start(ctx)
}

func (a *Acquirer) Current() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// Subscribe возвращает канал, в котором всегда лежит последний снимок.
// Медленный читатель пропускает промежуточные значения, но не последнее.
func (a *Acquirer) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	ch <- a.snap
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// Wait ждёт координату или завершения ctx.
func (a *Acquirer) Wait(ctx context.Context) (Snapshot, error) {
	ch, unsubscribe := a.Subscribe()
	defer unsubscribe()

	for {
		select {
		case snap := <-ch:
			if snap.Resolved() {
				return snap, nil
			}
		case <-ctx.Done():
			return a.Current(), ctx.Err()
		}
	}
}

func (a *Acquirer) runOneShot(ctx context.Context, gen uint64, requestedAt time.Time) {
	defer a.wg.Done()

	reqCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type result struct {
		fix Fix
		err error
	}
	done := make(chan result, 1)
	go func() {
		fix, err := a.source.CurrentPosition(reqCtx, a.opts)
		done <- result{fix: fix, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-reqCtx.Done():
		res = result{err: reqCtx.Err()}
	}

	if res.err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			// дедлайн вызывающего считается таймаутом запроса
			a.fail(gen, ReasonTimeout)
		case ctx.Err() != nil:
			a.abandon(gen)
		default:
			a.fail(gen, classify(res.err))
		}
		return
	}
	if err := res.fix.Coordinate.Validate(); err != nil {
		a.fail(gen, ReasonPositionUnavailable)
		return
	}
	if !res.fix.Timestamp.IsZero() && res.fix.Timestamp.Before(requestedAt.Add(-a.opts.MaximumAge)) {
		// cached reading
		a.fail(gen, ReasonPositionUnavailable)
		return
	}
	a.apply(gen, res.fix)
}

func (a *Acquirer) runWatch(ctx context.Context, gen uint64) {
	defer a.wg.Done()

	fixes, err := a.source.Watch(ctx, a.opts)
	if err != nil {
		a.logger.WithError(err).WithField("component", "location").Debug("Continuous location watch unavailable")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if err := fix.Coordinate.Validate(); err != nil {
				continue
			}
			a.apply(gen, fix)
		}
	}
}

// apply сохраняет fix, если он не старее уже принятого.
func (a *Acquirer) apply(gen uint64, fix Fix) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen {
		return
	}
	if a.snap.State != StateDetecting && a.snap.State != StateDetected {
		return
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = a.now()
	}
	if a.snap.State == StateDetected && fix.Timestamp.Before(a.snap.FixTime) {
		return
	}

	a.setLocked(Snapshot{
		State:      StateDetected,
		Coordinate: fix.Coordinate,
		Origin:     OriginDetected,
		Accuracy:   fix.Accuracy,
		FixTime:    fix.Timestamp,
	})
}

// abandon возвращает Detecting в Idle после отмены контекста вызывающим.
func (a *Acquirer) abandon(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen || a.snap.State != StateDetecting {
		return
	}
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.setLocked(Snapshot{State: StateIdle})
}

// fail переводит Detecting в Fallback. Положение, уже пришедшее из наблюдения, важнее.
func (a *Acquirer) fail(gen uint64, reason Reason) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen || a.snap.State != StateDetecting {
		return
	}
	a.fallbackLocked(reason)
	a.logger.WithFields(logrus.Fields{
		"component": "location",
		"reason":    reason,
	}).Warn("Location detection failed, using fallback location")

	// watch must not revive a fallback
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Acquirer) fallbackLocked(reason Reason) {
	a.setLocked(Snapshot{
		State:      StateFallback,
		Coordinate: a.fallback,
		Origin:     OriginFallback,
		Reason:     reason,
	})
}

func (a *Acquirer) setLocked(s Snapshot) {
	s.UpdatedAt = a.now()
	a.snap = s
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonPositionUnavailable
	}
}
