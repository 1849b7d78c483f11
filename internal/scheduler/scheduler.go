package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/i18n"
	"github.com/brettz9/sundriven/internal/notify"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/solar"
	"github.com/brettz9/sundriven/internal/timemath"
	"github.com/brettz9/sundriven/pkg/logger"
)

const (
	// DefaultIgnoreThreshold is how close to "now" a computed fire time may
	// be before it is treated as already past.
	DefaultIgnoreThreshold = 999 * time.Millisecond
	// DefaultMaxSleep caps how long the loop sleeps without re-reading the
	// wall clock.
	DefaultMaxSleep = 60 * time.Second

	vibrateFor = 500 * time.Millisecond
	// maxRecurAdvance bounds the days walked forward when re-arming.
	maxRecurAdvance = 400
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrStopped        = errors.New("scheduler stopped")
)

// Options holds the collaborators of a Scheduler. Store and Provider are
// required; the rest have defaults.
type Options struct {
	Store      reminder.Store
	Provider   *geo.Provider
	Resolver   *solar.Resolver
	Notifier   notify.Notifier
	Vibrator   notify.Vibrator
	Alerter    notify.Alerter
	Translator *i18n.Translator
	Clock      Clock
	Logger     logger.Logger

	IgnoreThreshold time.Duration
	MaxSleep        time.Duration
}

// Scheduler owns the armed timers and location watches of every reminder.
type Scheduler struct {
	store     reminder.Store
	provider  *geo.Provider
	resolver  *solar.Resolver
	notifier  notify.Notifier
	vibrator  notify.Vibrator
	alerter   notify.Alerter
	tr        *i18n.Translator
	clock     Clock
	log       logger.Logger
	threshold time.Duration
	maxSleep  time.Duration

	cmds    chan func()
	stopped chan struct{}
	running atomic.Bool

	// owned by the Run goroutine
	timers  map[string]*armed
	queue   armedHeap
	watches map[string]*pendingWatch
	seq     uint64

	subsMu sync.Mutex
	subs   map[int]chan Event
	subID  int
}

// New creates a Scheduler. Call Run to start it.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		store:     opts.Store,
		provider:  opts.Provider,
		resolver:  opts.Resolver,
		notifier:  opts.Notifier,
		vibrator:  opts.Vibrator,
		alerter:   opts.Alerter,
		tr:        opts.Translator,
		clock:     opts.Clock,
		log:       logger.OrNop(opts.Logger),
		threshold: opts.IgnoreThreshold,
		maxSleep:  opts.MaxSleep,
		cmds:      make(chan func()),
		stopped:   make(chan struct{}),
		timers:    make(map[string]*armed),
		watches:   make(map[string]*pendingWatch),
		subs:      make(map[int]chan Event),
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.provider == nil {
		s.provider = geo.NewProvider(nil, s.log)
	}
	if s.resolver == nil {
		s.resolver = solar.NewResolver(nil, s.clock.Now)
	}
	if s.tr == nil {
		s.tr = i18n.New(i18n.DefaultLocale)
	}
	if s.notifier == nil || s.vibrator == nil || s.alerter == nil {
		ln := notify.NewLogNotifier(s.log)
		if s.notifier == nil {
			s.notifier = ln
		}
		if s.vibrator == nil {
			s.vibrator = ln
		}
		if s.alerter == nil {
			s.alerter = ln
		}
	}
	if s.threshold <= 0 {
		s.threshold = DefaultIgnoreThreshold
	}
	if s.maxSleep <= 0 {
		s.maxSleep = DefaultMaxSleep
	}
	return s
}

// Run executes the scheduler loop until ctx is cancelled. On return every
// timer is disarmed and every watch cleared.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.stopped)

	var timer Timer
	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		if s.queue.Len() == 0 {
			return nil
		}
		d := s.queue[0].deadline.Sub(s.clock.Now())
		if d > s.maxSleep {
			d = s.maxSleep
		}
		if d < 0 {
			d = 0
		}
		timer = s.clock.NewTimer(d)
		return timer.C()
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		s.cancelAll()
		s.log.Info("scheduler: stopped")
	}()

	s.log.Info("scheduler: started")
	timerCh := resetTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.cmds:
			s.fireDue()
			fn()
		case <-timerCh:
			s.fireDue()
		}
		timerCh = resetTimer()
	}
}

// do runs fn on the loop and waits for it to finish.
func (s *Scheduler) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
}

// post queues fn on the loop without waiting. It is used by callbacks that
// may run on any goroutine, including the loop itself.
func (s *Scheduler) post(fn func()) {
	go func() {
		select {
		case s.cmds <- fn:
		case <-s.stopped:
		}
	}()
}

// Reconcile brings scheduling in line with set: disabled reminders are
// disarmed, enabled ones are recomputed from scratch, and names missing
// from set are disarmed.
func (s *Scheduler) Reconcile(ctx context.Context, set reminder.Set) error {
	set = set.Clone()
	return s.do(ctx, func() { s.reconcile(set) })
}

// Update runs fn on the loop and reconciles the set it returns. fn runs
// between timer fires, so a read-modify-write of the store inside it
// never interleaves with a fired one-time reminder disabling itself.
// When fn fails nothing is reconciled and its error is returned.
func (s *Scheduler) Update(ctx context.Context, fn func() (reminder.Set, error)) (reminder.Set, error) {
	var (
		set  reminder.Set
		ferr error
	)
	err := s.do(ctx, func() {
		set, ferr = fn()
		if ferr == nil {
			s.reconcile(set.Clone())
		}
	})
	if err != nil {
		return nil, err
	}
	return set, ferr
}

// Remove disarms name and clears its watch. Removing an unknown name is a no-op.
func (s *Scheduler) Remove(ctx context.Context, name string) error {
	return s.do(ctx, func() {
		if s.cancel(name) {
			s.emit(Event{Type: EventUnscheduled, Name: name})
		}
	})
}

// Reload discards all scheduling state and reconciles the stored set.
func (s *Scheduler) Reload(ctx context.Context) error {
	return s.do(ctx, s.reload)
}

// Status lists armed reminders (by deadline) followed by reminders still
// waiting for coordinates (by name).
func (s *Scheduler) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	err := s.do(ctx, func() {
		for _, a := range s.timers {
			out = append(out, Status{
				Name:          a.name,
				State:         StateArmed,
				Frequency:     a.reminder.Frequency,
				RelativeEvent: a.reminder.RelativeEvent,
				EffectiveDate: a.effective,
				Deadline:      a.deadline,
				ArmedAt:       a.armedAt,
			})
		}
		var waiting []string
		for name, w := range s.watches {
			if _, ok := s.timers[name]; !ok && !w.resolved {
				waiting = append(waiting, name)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
		sort.Strings(waiting)
		for _, name := range waiting {
			out = append(out, Status{Name: name, State: StateResolving})
		}
	})
	return out, err
}

// Subscribe returns a channel of scheduler events and a function that
// ends the subscription. Events are dropped when the buffer is full.
func (s *Scheduler) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	s.subsMu.Lock()
	id := s.subID
	s.subID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Scheduler) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Scheduler) alert(msg string) {
	s.log.Warning("scheduler: %s", msg)
	s.alerter.Alert(msg)
	s.emit(Event{Type: EventAlert, Message: msg})
}

func (s *Scheduler) reconcile(set reminder.Set) {
	for name := range s.timers {
		if _, ok := set[name]; !ok {
			s.cancel(name)
			s.emit(Event{Type: EventUnscheduled, Name: name})
		}
	}
	for name := range s.watches {
		if _, ok := set[name]; !ok {
			s.clearWatch(name)
		}
	}
	settings, err := s.store.Settings()
	if err != nil {
		s.log.Error("scheduler: read settings: %v", err)
	}
	for _, name := range set.Names() {
		s.reconcileOne(name, set[name], settings.Policy())
	}
}

func (s *Scheduler) reconcileOne(name string, r reminder.Reminder, policy geo.Policy) {
	if !r.Enabled {
		if s.cancel(name) {
			s.emit(Event{Type: EventUnscheduled, Name: name})
		}
		return
	}
	s.clearWatch(name)
	s.disarm(name)

	minutes, err := r.Offset()
	if err != nil {
		s.alert(s.tr.T("invalid_minutes", name, r.Minutes))
		return
	}
	if !r.IsAstronomical() {
		now := s.clock.Now()
		exp, _ := timemath.UntilExpiry(now, time.Time{}, minutes, r.RelativePosition)
		if exp.Duration <= s.threshold {
			// a zero offset would fire the moment it is armed
			exp, _ = timemath.UntilExpiry(now, timemath.IncrementDate(now), minutes, r.RelativePosition)
		}
		s.arm(name, r, "", geo.Coordinates{}, exp, now)
		return
	}

	ev, err := r.Event()
	if err != nil {
		s.alert(s.tr.T("event_not_found", name, err))
		return
	}
	s.seq++
	token := s.seq
	pw := &pendingWatch{token: token}
	s.watches[name] = pw
	pw.handle = s.provider.Watch(policy, s.manualCoordinates, func(c geo.Coordinates, err error) {
		s.post(func() { s.onCoordinates(name, token, r, ev, policy, c, err) })
	})
}

// manualCoordinates reads the manual coordinates at resolution time.
func (s *Scheduler) manualCoordinates() geo.Manual {
	st, err := s.store.Settings()
	if err != nil {
		s.log.Error("scheduler: read settings: %v", err)
		return geo.Manual{}
	}
	return st.Manual()
}

// onCoordinates acts on the first resolution of a watch; later updates
// and updates from superseded watches are ignored.
func (s *Scheduler) onCoordinates(name string, token uint64, r reminder.Reminder, ev solar.Event, policy geo.Policy, c geo.Coordinates, err error) {
	pw, ok := s.watches[name]
	if !ok || pw.token != token || pw.resolved {
		return
	}
	pw.resolved = true
	if err != nil {
		s.alert(s.coordinateAlert(name, policy, err))
		s.emit(Event{Type: EventUnscheduled, Name: name, Message: err.Error()})
		return
	}
	s.scheduleNext(name, r, time.Time{}, ev, c, false)
}

func (s *Scheduler) coordinateAlert(name string, policy geo.Policy, err error) string {
	var pe *geo.PositionError
	switch {
	case errors.Is(err, geo.ErrInvalidManualCoordinates) && policy == geo.PolicyNever:
		return s.tr.T("geoloc_disallowed_invalid_manual", name)
	case errors.Is(err, geo.ErrNoCoordinatesAvailable):
		return s.tr.T("geoloc_unavailable_invalid_manual", name)
	case errors.Is(err, geo.ErrUnsupported):
		return s.tr.T("geoloc_unsupported", name)
	case errors.As(err, &pe):
		return s.tr.T("geoloc_error", name, int(pe.Code), pe.Message)
	}
	return s.tr.T("event_not_found", name, err)
}

// scheduleNext resolves the next occurrence of ev from base and arms the
// reminder for it. When recurring, occurrences whose fire time is within
// the ignore threshold of now are skipped so one occurrence never fires
// twice.
func (s *Scheduler) scheduleNext(name string, r reminder.Reminder, base time.Time, ev solar.Event, c geo.Coordinates, recurring bool) {
	minutes, err := r.Offset()
	if err != nil {
		s.alert(s.tr.T("invalid_minutes", name, r.Minutes))
		return
	}
	fail := func(err error) {
		s.alert(s.tr.T("event_not_found", name, err))
		s.emit(Event{Type: EventUnscheduled, Name: name, Message: err.Error()})
	}

	now := s.clock.Now()
	ts, err := s.resolver.Resolve(ev, base, c)
	if err != nil {
		fail(err)
		return
	}
	exp, _ := timemath.UntilExpiry(now, ts, minutes, r.RelativePosition)
	for i := 0; recurring && exp.Duration <= s.threshold; i++ {
		if i == maxRecurAdvance {
			fail(solar.ErrNoFutureEvent)
			return
		}
		if ts, err = s.resolver.Resolve(ev, timemath.IncrementDate(ts), c); err != nil {
			fail(err)
			return
		}
		exp, _ = timemath.UntilExpiry(now, ts, minutes, r.RelativePosition)
	}
	s.arm(name, r, ev, c, exp, now)
}

func (s *Scheduler) arm(name string, r reminder.Reminder, ev solar.Event, c geo.Coordinates, exp timemath.Expiry, now time.Time) {
	s.disarm(name)
	a := &armed{
		name:      name,
		reminder:  r,
		event:     ev,
		coords:    c,
		effective: exp.EffectiveDate,
		duration:  exp.Duration,
		armedAt:   now,
		deadline:  exp.Deadline(now),
	}
	s.timers[name] = a
	heapPush(&s.queue, a)
	s.log.Info("scheduler: armed %q for %s (in %s)", name, a.deadline.Format(time.RFC3339), exp.Duration.Round(time.Second))
	s.emit(Event{Type: EventArmed, Name: name, Deadline: a.deadline})
}

// fireDue fires every timer whose deadline has passed.
func (s *Scheduler) fireDue() {
	now := s.clock.Now()
	for s.queue.Len() > 0 && !s.queue[0].deadline.After(now) {
		a := heapPop(&s.queue)
		delete(s.timers, a.name)
		s.fire(a, s.clock.Now())
	}
}

func (s *Scheduler) fire(a *armed, now time.Time) {
	r := a.reminder
	astronomical := a.event != ""
	var key string
	switch {
	case r.Frequency == reminder.OneTime && astronomical:
		key = "notification_message_onetime_astronomical"
	case r.Frequency == reminder.OneTime:
		key = "notification_message_onetime"
	case astronomical:
		key = "notification_message_daily_astronomical"
	default:
		key = "notification_message_daily"
	}
	body := s.tr.T(key, a.name, a.effective, now.Add(-a.duration), now, s.tr.T(string(a.event)))

	s.log.Info("scheduler: firing %q", a.name)
	if err := s.notifier.Show(s.tr.T("notification_title"), notify.Options{
		Body:               body,
		Lang:               s.tr.Locale(),
		RequireInteraction: true,
	}); err != nil {
		s.log.Warning("scheduler: notify %q: %v", a.name, err)
	}
	if err := s.vibrator.Vibrate(vibrateFor); err != nil {
		s.log.Warning("scheduler: vibrate: %v", err)
	}
	s.emit(Event{Type: EventFired, Name: a.name, At: now, Message: body})

	switch {
	case r.Frequency == reminder.OneTime:
		s.clearWatch(a.name)
		s.disableFired(a.name)
	case astronomical:
		base := a.effective
		if a.duration < s.threshold {
			base = timemath.IncrementDate(base)
		}
		s.scheduleNext(a.name, r, base, a.event, a.coords, true)
	default:
		// daily reminders relative to "now" wait for the next reconcile
		s.emit(Event{Type: EventUnscheduled, Name: a.name})
	}
}

// disableFired persists enabled=false for a fired one-time reminder. A
// storage failure leaves memory and storage out of step, so everything
// is reloaded.
func (s *Scheduler) disableFired(name string) {
	set, err := s.store.Get()
	if err == nil {
		r, ok := set[name]
		if !ok {
			s.emit(Event{Type: EventUnscheduled, Name: name})
			return
		}
		r.Enabled = false
		set[name] = r
		err = s.store.Set(set)
	}
	if err != nil {
		s.log.Error("scheduler: persist disabled %q: %v", name, err)
		s.alert(s.tr.T("storage_error"))
		s.reload()
		return
	}
	s.emit(Event{Type: EventDisabled, Name: name})
}

func (s *Scheduler) reload() {
	s.cancelAll()
	set, err := s.store.Get()
	if err != nil {
		s.log.Error("scheduler: reload: %v", err)
		s.alert(s.tr.T("storage_read_error", err))
		return
	}
	s.reconcile(set)
}

// cancel disarms name and clears its watch, reporting whether anything
// was live.
func (s *Scheduler) cancel(name string) bool {
	w := s.clearWatch(name)
	t := s.disarm(name)
	return w || t
}

func (s *Scheduler) disarm(name string) bool {
	a, ok := s.timers[name]
	if !ok {
		return false
	}
	heapRemove(&s.queue, a)
	delete(s.timers, name)
	return true
}

func (s *Scheduler) clearWatch(name string) bool {
	w, ok := s.watches[name]
	if !ok {
		return false
	}
	delete(s.watches, name)
	if w.handle != nil {
		w.handle.Clear()
	}
	return true
}

func (s *Scheduler) cancelAll() {
	for name := range s.watches {
		s.clearWatch(name)
	}
	for name := range s.timers {
		s.disarm(name)
	}
}
