package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/notify"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/solar"
	"github.com/brettz9/sundriven/internal/timemath"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	c       chan time.Time
	stopped bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), c: make(chan time.Time, 1)}
	if d <= 0 {
		t.c <- c.now
		t.stopped = true
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if !t.at.After(c.now) {
			t.stopped = true
			select {
			case t.c <- c.now:
			default:
			}
			continue
		}
		kept = append(kept, t)
	}
	c.timers = kept
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type memStore struct {
	mu       sync.Mutex
	set      reminder.Set
	settings reminder.Settings
	failSet  bool
	sets     int
}

func (m *memStore) Get() (reminder.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Clone(), nil
}

func (m *memStore) Set(s reminder.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.failSet {
		return errors.New("disk full")
	}
	m.set = s.Clone()
	return nil
}

func (m *memStore) Settings() (reminder.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memStore) SaveSettings(s reminder.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *memStore) Close() error { return nil }

type recorder struct {
	mu       sync.Mutex
	shown    []notify.Options
	titles   []string
	vibrated int
	alerts   []string
}

func (r *recorder) Show(title string, opts notify.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.shown = append(r.shown, opts)
	return nil
}

func (r *recorder) Vibrate(time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vibrated++
	return nil
}

func (r *recorder) Alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func (r *recorder) shownCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

func (r *recorder) alertsCopy() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

// sixAM reports every event at 06:00 of the requested day.
type sixAM struct{}

func (sixAM) SolarNoon(date time.Time, _ float64) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, date.Location())
}

func (sixAM) EventTime(_ solar.Event, date time.Time, _, _ float64) (time.Time, error) {
	y, m, d := date.Date()
	return time.Date(y, m, d, 6, 0, 0, 0, date.Location()), nil
}

type polar struct{}

func (polar) SolarNoon(date time.Time, _ float64) time.Time { return date }

func (polar) EventTime(solar.Event, time.Time, float64, float64) (time.Time, error) {
	return time.Time{}, solar.ErrNoEvent
}

var start = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	t     *testing.T
	s     *Scheduler
	clock *fakeClock
	store *memStore
	rec   *recorder
	ctx   context.Context
}

func newHarness(t *testing.T, st *memStore, backend solar.Backend) *harness {
	t.Helper()
	return startHarness(t, st, func(o *Options) {
		if backend != nil {
			o.Resolver = solar.NewResolver(backend, o.Clock.Now)
		}
	})
}

// startHarness runs a scheduler over st with a fake clock and a recorder.
// configure may replace any collaborator before the scheduler starts.
func startHarness(t *testing.T, st *memStore, configure func(*Options)) *harness {
	t.Helper()
	clk := newFakeClock(start)
	rec := &recorder{}
	opts := Options{
		Store:    st,
		Resolver: solar.NewResolver(sixAM{}, clk.Now),
		Notifier: rec,
		Vibrator: rec,
		Alerter:  rec,
		Clock:    clk,
	}
	if configure != nil {
		configure(&opts)
	}
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
	return &harness{t: t, s: s, clock: clk, store: st, rec: rec, ctx: ctx}
}

func (h *harness) reconcile() {
	h.t.Helper()
	set, _ := h.store.Get()
	if err := h.s.Reconcile(h.ctx, set); err != nil {
		h.t.Fatalf("Reconcile: %v", err)
	}
}

// status also flushes any timers the clock has made due.
func (h *harness) status() []Status {
	h.t.Helper()
	st, err := h.s.Status(h.ctx)
	if err != nil {
		h.t.Fatalf("Status: %v", err)
	}
	return st
}

func waitEvent(t *testing.T, ch <-chan Event, typ EventType, name string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ && ev.Name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event on %q", typ, name)
			return Event{}
		}
	}
}

func nowReminder(name string, freq reminder.Frequency, minutes string, pos timemath.Position) reminder.Reminder {
	return reminder.Reminder{
		Name:             name,
		Enabled:          true,
		Frequency:        freq,
		RelativeEvent:    reminder.EventNow,
		Minutes:          minutes,
		RelativePosition: pos,
	}
}

func TestOneTimeFiresOnceAndDisables(t *testing.T) {
	st := &memStore{set: reminder.Set{"a": nowReminder("a", reminder.OneTime, "60", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	got := h.status()
	if len(got) != 1 || got[0].Name != "a" || got[0].State != StateArmed {
		t.Fatalf("expected a armed, got %+v", got)
	}
	if want := start.Add(time.Hour); !got[0].Deadline.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, got[0].Deadline)
	}

	h.clock.Advance(59 * time.Minute)
	h.status()
	if n := h.rec.shownCount(); n != 0 {
		t.Fatalf("fired early: %d notifications", n)
	}

	h.clock.Advance(time.Minute)
	if got := h.status(); len(got) != 0 {
		t.Errorf("expected nothing armed after firing, got %+v", got)
	}
	if n := h.rec.shownCount(); n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}
	h.rec.mu.Lock()
	opts, title, vib := h.rec.shown[0], h.rec.titles[0], h.rec.vibrated
	h.rec.mu.Unlock()
	if title != "Reminder (Click inside me to stop)" {
		t.Errorf("unexpected title %q", title)
	}
	if !opts.RequireInteraction || opts.Lang != "en-US" {
		t.Errorf("unexpected options %+v", opts)
	}
	if !strings.HasPrefix(opts.Body, `One-time reminder "a"`) {
		t.Errorf("unexpected body %q", opts.Body)
	}
	if vib != 1 {
		t.Errorf("expected 1 vibration, got %d", vib)
	}
	stored, _ := st.Get()
	if stored["a"].Enabled {
		t.Error("expected stored reminder to be disabled")
	}

	h.clock.Advance(48 * time.Hour)
	h.status()
	if n := h.rec.shownCount(); n != 1 {
		t.Errorf("one-time reminder fired again: %d notifications", n)
	}
}

func TestDailyNowZeroMinutesUsesNextDay(t *testing.T) {
	st := &memStore{set: reminder.Set{"z": nowReminder("z", reminder.Daily, "0", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	got := h.status()
	if len(got) != 1 {
		t.Fatalf("expected one armed reminder, got %+v", got)
	}
	if want := start.AddDate(0, 0, 1); !got[0].Deadline.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, got[0].Deadline)
	}
}

func TestDailyNowDoesNotRecurUntilReconciled(t *testing.T) {
	st := &memStore{set: reminder.Set{"d": nowReminder("d", reminder.Daily, "30", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	h.clock.Advance(30 * time.Minute)
	if got := h.status(); len(got) != 0 {
		t.Fatalf("expected nothing armed after firing, got %+v", got)
	}
	stored, _ := st.Get()
	if !stored["d"].Enabled {
		t.Error("daily reminder must stay enabled")
	}

	h.reconcile()
	got := h.status()
	if len(got) != 1 || !got[0].Deadline.Equal(h.clock.Now().Add(30*time.Minute)) {
		t.Errorf("expected re-armed 30 minutes out, got %+v", got)
	}
}

func TestBeforeNowClampsToImmediateNextDay(t *testing.T) {
	// 10 minutes before now is past; the next-day base puts it 23h50m out.
	st := &memStore{set: reminder.Set{"b": nowReminder("b", reminder.OneTime, "10", timemath.Before)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	got := h.status()
	if len(got) != 1 {
		t.Fatalf("expected one armed reminder, got %+v", got)
	}
	if want := start.AddDate(0, 0, 1).Add(-10 * time.Minute); !got[0].Deadline.Equal(want) {
		t.Errorf("expected deadline %v, got %v", want, got[0].Deadline)
	}
}

func TestReconcileDisarmsDisabledAndMissing(t *testing.T) {
	st := &memStore{set: reminder.Set{
		"a": nowReminder("a", reminder.Daily, "10", timemath.After),
		"b": nowReminder("b", reminder.Daily, "20", timemath.After),
		"c": nowReminder("c", reminder.Daily, "30", timemath.After),
	}}
	h := newHarness(t, st, nil)
	h.reconcile()
	if got := h.status(); len(got) != 3 {
		t.Fatalf("expected 3 armed, got %+v", got)
	}

	b := st.set["b"]
	b.Enabled = false
	next := reminder.Set{"b": b, "c": st.set["c"]}
	if err := h.s.Reconcile(h.ctx, next); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := h.status()
	if len(got) != 1 || got[0].Name != "c" {
		t.Errorf("expected only c armed, got %+v", got)
	}

	h.clock.Advance(time.Hour)
	h.status()
	if n := h.rec.shownCount(); n != 1 {
		t.Errorf("expected only c to fire, got %d notifications", n)
	}
}

func TestReconcileReplacesTimer(t *testing.T) {
	st := &memStore{set: reminder.Set{"a": nowReminder("a", reminder.Daily, "10", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	st.set["a"] = nowReminder("a", reminder.Daily, "90", timemath.After)
	h.reconcile()

	h.clock.Advance(10 * time.Minute)
	got := h.status()
	if h.rec.shownCount() != 0 {
		t.Fatal("old timer still fired")
	}
	if len(got) != 1 || !got[0].Deadline.Equal(start.Add(90*time.Minute)) {
		t.Errorf("expected single timer at +90m, got %+v", got)
	}
}

func TestRemove(t *testing.T) {
	st := &memStore{set: reminder.Set{"a": nowReminder("a", reminder.Daily, "10", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	if err := h.s.Remove(h.ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := h.s.Remove(h.ctx, "missing"); err != nil {
		t.Fatalf("Remove of unknown name: %v", err)
	}
	h.clock.Advance(time.Hour)
	if got := h.status(); len(got) != 0 || h.rec.shownCount() != 0 {
		t.Errorf("removed reminder still scheduled: %+v", got)
	}
}

func TestInvalidMinutesAlerts(t *testing.T) {
	st := &memStore{set: reminder.Set{"x": nowReminder("x", reminder.Daily, "soon", timemath.After)}}
	h := newHarness(t, st, nil)
	h.reconcile()

	if got := h.status(); len(got) != 0 {
		t.Errorf("expected nothing armed, got %+v", got)
	}
	alerts := h.rec.alertsCopy()
	if len(alerts) != 1 || !strings.Contains(alerts[0], "invalid number of minutes: soon") {
		t.Errorf("unexpected alerts %q", alerts)
	}
}

func TestDailyAstronomicalRecurs(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"sun": {
			Name: "sun", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.Sunrise), Minutes: "0", RelativePosition: timemath.After,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyNever, Latitude: "10", Longitude: "20"},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()

	armed := waitEvent(t, events, EventArmed, "sun")
	day1 := time.Date(2024, 5, 11, 6, 0, 0, 0, time.UTC)
	if !armed.Deadline.Equal(day1) {
		t.Fatalf("expected first deadline %v, got %v", day1, armed.Deadline)
	}

	h.clock.Advance(day1.Sub(start))
	got := h.status()
	if h.rec.shownCount() != 1 {
		t.Fatalf("expected sunrise to fire once, got %d", h.rec.shownCount())
	}
	if len(got) != 1 || !got[0].Deadline.Equal(day1.AddDate(0, 0, 1)) {
		t.Fatalf("expected re-armed for next sunrise, got %+v", got)
	}
	h.rec.mu.Lock()
	body := h.rec.shown[0].Body
	h.rec.mu.Unlock()
	if !strings.HasSuffix(body, "relative to sunrise.") {
		t.Errorf("unexpected body %q", body)
	}

	h.clock.Advance(24 * time.Hour)
	h.status()
	if h.rec.shownCount() != 2 {
		t.Errorf("expected second sunrise to fire, got %d", h.rec.shownCount())
	}
}

func TestAstronomicalBeforeOffsetSkipsFiredOccurrence(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"pre": {
			Name: "pre", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.Sunrise), Minutes: "30", RelativePosition: timemath.Before,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyNever, Latitude: "10", Longitude: "20"},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	waitEvent(t, events, EventArmed, "pre")

	fire := time.Date(2024, 5, 11, 5, 30, 0, 0, time.UTC)
	h.clock.Advance(fire.Sub(start))
	got := h.status()
	if len(got) != 1 || !got[0].Deadline.Equal(fire.AddDate(0, 0, 1)) {
		t.Fatalf("expected next day at 05:30, got %+v", got)
	}
	if h.rec.shownCount() != 1 {
		t.Errorf("expected one notification, got %d", h.rec.shownCount())
	}
}

func TestOneTimeAstronomicalDisablesAfterFiring(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"once": {
			Name: "once", Enabled: true, Frequency: reminder.OneTime,
			RelativeEvent: string(solar.Sunset), Minutes: "5", RelativePosition: timemath.After,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyNever, Latitude: "1", Longitude: "2"},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	waitEvent(t, events, EventArmed, "once")

	h.clock.Advance(48 * time.Hour)
	h.status()
	waitEvent(t, events, EventDisabled, "once")
	stored, _ := st.Get()
	if stored["once"].Enabled {
		t.Error("expected one-time reminder to be disabled")
	}
	if h.rec.shownCount() != 1 {
		t.Errorf("expected one notification, got %d", h.rec.shownCount())
	}
}

func TestInvalidManualCoordinatesUnderNever(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"s": {
			Name: "s", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.Sunset), Minutes: "0", RelativePosition: timemath.After,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyNever, Latitude: "north", Longitude: ""},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	waitEvent(t, events, EventUnscheduled, "s")

	if got := h.status(); len(got) != 0 {
		t.Errorf("expected nothing scheduled, got %+v", got)
	}
	alerts := h.rec.alertsCopy()
	if len(alerts) != 1 || !strings.HasPrefix(alerts[0], "Per your settings, Geolocation is disallowed") {
		t.Errorf("unexpected alerts %q", alerts)
	}
}

func TestNoSourceFallsBackToManual(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"s": {
			Name: "s", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.SolarNoon), Minutes: "0", RelativePosition: timemath.After,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyWhenAvailable, Latitude: "10", Longitude: "20"},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	ev := waitEvent(t, events, EventArmed, "s")
	if want := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC); !ev.Deadline.Equal(want) {
		t.Errorf("expected %v, got %v", want, ev.Deadline)
	}
}

func TestNoSourceWithoutManualAlerts(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"s": {
			Name: "s", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.Sunrise), Minutes: "0", RelativePosition: timemath.After,
		}},
	}
	h := newHarness(t, st, nil)
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	waitEvent(t, events, EventUnscheduled, "s")

	alerts := h.rec.alertsCopy()
	if len(alerts) != 1 || !strings.HasPrefix(alerts[0], "Geolocation is not currently available") {
		t.Errorf("unexpected alerts %q", alerts)
	}
}

func TestPolarEventAlerts(t *testing.T) {
	st := &memStore{
		set: reminder.Set{"p": {
			Name: "p", Enabled: true, Frequency: reminder.Daily,
			RelativeEvent: string(solar.Sunrise), Minutes: "0", RelativePosition: timemath.After,
		}},
		settings: reminder.Settings{GeolocUsage: geo.PolicyNever, Latitude: "89", Longitude: "0"},
	}
	h := newHarness(t, st, polar{})
	events, stop := h.s.Subscribe(16)
	defer stop()
	h.reconcile()
	waitEvent(t, events, EventUnscheduled, "p")

	alerts := h.rec.alertsCopy()
	if len(alerts) != 1 || !strings.Contains(alerts[0], `"p" could not be set`) {
		t.Errorf("unexpected alerts %q", alerts)
	}
}

func TestPersistFailureReloads(t *testing.T) {
	st := &memStore{
		set:     reminder.Set{"a": nowReminder("a", reminder.OneTime, "60", timemath.After)},
		failSet: true,
	}
	h := newHarness(t, st, nil)
	h.reconcile()

	h.clock.Advance(time.Hour)
	got := h.status()
	alerts := h.rec.alertsCopy()
	if len(alerts) != 1 || !strings.HasPrefix(alerts[0], "ERROR: Problem setting storage") {
		t.Fatalf("unexpected alerts %q", alerts)
	}
	// the stored copy is still enabled, so reloading arms it again
	if len(got) != 1 || !got[0].Deadline.Equal(h.clock.Now().Add(time.Hour)) {
		t.Errorf("expected reload to re-arm a, got %+v", got)
	}
}

func TestStatusOrdersByDeadline(t *testing.T) {
	st := &memStore{set: reminder.Set{
		"late":  nowReminder("late", reminder.Daily, "120", timemath.After),
		"early": nowReminder("early", reminder.Daily, "5", timemath.After),
	}}
	h := newHarness(t, st, nil)
	h.reconcile()

	got := h.status()
	if len(got) != 2 || got[0].Name != "early" || got[1].Name != "late" {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, &memStore{}, nil)
	h.status()
	if err := h.s.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStoppedScheduler(t *testing.T) {
	s := New(Options{Store: &memStore{}, Clock: newFakeClock(start)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	if _, err := s.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	cancel()
	<-done
	if _, err := s.Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
