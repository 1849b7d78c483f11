package server

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/internal/solar"
	"github.com/brettz9/sundriven/pkg/logger"
)

// Application error codes.
const (
	CodeNotFound        = jrpc2.Code(-32001)
	CodeDuplicateName   = jrpc2.Code(-32002)
	CodeInvalidReminder = jrpc2.Code(-32003)
	CodeStorage         = jrpc2.Code(-32004)
	CodeLocation        = jrpc2.Code(-32005)
	codeInvalidParams   = jrpc2.Code(-32602)
)

// Scheduler is the part of *scheduler.Scheduler the RPC methods drive.
// Every store mutation goes through Update, which serializes it with
// timer fires and reconciles the resulting set.
type Scheduler interface {
	Update(ctx context.Context, fn func() (reminder.Set, error)) (reminder.Set, error)
	Status(ctx context.Context) ([]scheduler.Status, error)
}

// RPCConfig holds the collaborators of the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required; empty means every call is rejected)
	Version   string
	Commit    string
	BuildType string

	Store     reminder.Store
	Scheduler Scheduler
	Provider  *geo.Provider
	Resolver  *solar.Resolver
	Logger    logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	store     reminder.Store
	sched     Scheduler
	provider  *geo.Provider
	resolver  *solar.Resolver
	log       logger.Logger
	now       func() time.Time
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// NameParam selects one reminder.
type NameParam struct {
	Name string `json:"name"`
}

// SaveParams is the input for reminder.save. An empty OriginalName
// creates; a different one renames.
type SaveParams struct {
	Reminder     reminder.Reminder `json:"reminder"`
	OriginalName string            `json:"originalName,omitempty"`
}

// EnabledParams is the input for reminder.setEnabled.
type EnabledParams struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ImportParams is the input for reminder.import. Without Replace the
// imported reminders are merged over the stored ones.
type ImportParams struct {
	Reminders reminder.Set       `json:"reminders"`
	Settings  *reminder.Settings `json:"settings,omitempty"`
	Replace   bool               `json:"replace,omitempty"`
}

// ListResult is the response for reminder.list and reminder.import.
type ListResult struct {
	Reminders []reminder.Reminder `json:"reminders"`
}

// StatusResult is the response for reminder.status.
type StatusResult struct {
	Reminders []scheduler.Status `json:"reminders"`
}

// LocationParams is the input for location.retrieve.
type LocationParams struct {
	// Save stores the position as the manual coordinates.
	Save bool `json:"save,omitempty"`
}

// LocationResult is a resolved position.
type LocationResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TimesParams is the input for events.times.
type TimesParams struct {
	// Date is YYYY-MM-DD in the daemon's local zone; empty means today.
	Date string `json:"date,omitempty"`
}

// EventTime is one row of events.times.
type EventTime struct {
	Event string     `json:"event"`
	Time  *time.Time `json:"time,omitempty"`
	Error string     `json:"error,omitempty"`
}

// TimesResult is the response for events.times.
type TimesResult struct {
	Date      string      `json:"date"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Events    []EventTime `json:"events"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// NewRPCServer creates a new RPCServer with method handlers and HTTP bridge.
func NewRPCServer(cfg *RPCConfig) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		store:     cfg.Store,
		sched:     cfg.Scheduler,
		provider:  cfg.Provider,
		resolver:  cfg.Resolver,
		log:       logger.OrNop(cfg.Logger),
		now:       cfg.Now,
	}
	if rs.now == nil {
		rs.now = time.Now
	}
	if rs.provider == nil {
		rs.provider = geo.NewProvider(nil, rs.log)
	}
	if rs.resolver == nil {
		rs.resolver = solar.NewResolver(nil, rs.now)
	}

	rs.methods = handler.Map{
		"system.getVersion":   handler.New(rs.systemGetVersion),
		"reminder.list":       handler.New(rs.reminderList),
		"reminder.get":        handler.New(rs.reminderGet),
		"reminder.save":       handler.New(rs.reminderSave),
		"reminder.delete":     handler.New(rs.reminderDelete),
		"reminder.setEnabled": handler.New(rs.reminderSetEnabled),
		"reminder.import":     handler.New(rs.reminderImport),
		"reminder.status":     handler.New(rs.reminderStatus),
		"settings.get":        handler.New(rs.settingsGet),
		"settings.set":        handler.New(rs.settingsSet),
		"location.retrieve":   handler.New(rs.locationRetrieve),
		"events.times":        handler.New(rs.eventsTimes),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Methods exposes the handler table for websocket servers.
func (rs *RPCServer) Methods() handler.Map {
	return rs.methods
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func (rs *RPCServer) reminderList(_ context.Context) (*ListResult, error) {
	set, err := rs.store.Get()
	if err != nil {
		return nil, rpcError(err)
	}
	return listResult(set), nil
}

func listResult(set reminder.Set) *ListResult {
	out := make([]reminder.Reminder, 0, len(set))
	for _, name := range set.Names() {
		out = append(out, set[name])
	}
	return &ListResult{Reminders: out}
}

func (rs *RPCServer) reminderGet(_ context.Context, p *NameParam) (*reminder.Reminder, error) {
	set, err := rs.store.Get()
	if err != nil {
		return nil, rpcError(err)
	}
	r, ok := set[p.Name]
	if !ok {
		return nil, &jrpc2.Error{Code: CodeNotFound, Message: "reminder not found: " + p.Name}
	}
	return &r, nil
}

// reminderSave persists the reminder and reconciles the stored set. A
// renamed reminder's old key is absent from that set, so its timer and
// watch are dropped by the same reconcile.
func (rs *RPCServer) reminderSave(ctx context.Context, p *SaveParams) (*reminder.Reminder, error) {
	set, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
		return reminder.Save(rs.store, p.Reminder, p.OriginalName)
	})
	if err != nil {
		return nil, rpcError(err)
	}
	r := set[p.Reminder.Name]
	rs.log.Info("server: saved reminder %q", r.Name)
	return &r, nil
}

func (rs *RPCServer) reminderDelete(ctx context.Context, p *NameParam) (*EmptyResult, error) {
	_, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
		return reminder.Delete(rs.store, p.Name)
	})
	if err != nil {
		return nil, rpcError(err)
	}
	rs.log.Info("server: deleted reminder %q", p.Name)
	return &EmptyResult{}, nil
}

func (rs *RPCServer) reminderSetEnabled(ctx context.Context, p *EnabledParams) (*reminder.Reminder, error) {
	set, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
		return reminder.SetEnabled(rs.store, p.Name, p.Enabled)
	})
	if err != nil {
		return nil, rpcError(err)
	}
	r := set[p.Name]
	return &r, nil
}

func (rs *RPCServer) reminderImport(ctx context.Context, p *ImportParams) (*ListResult, error) {
	for name, r := range p.Reminders {
		if r.Name != name {
			return nil, &jrpc2.Error{Code: CodeInvalidReminder, Message: "reminder key does not match its name: " + name}
		}
		if err := r.Validate(); err != nil {
			return nil, rpcError(err)
		}
	}
	if p.Settings != nil {
		if err := p.Settings.Validate(); err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
		}
	}
	set, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
		set := reminder.Set{}
		if !p.Replace {
			stored, err := rs.store.Get()
			if err != nil {
				return nil, err
			}
			set = stored
		}
		for name, r := range p.Reminders {
			set[name] = r
		}
		if err := rs.store.Set(set); err != nil {
			return nil, err
		}
		if p.Settings != nil {
			if err := rs.store.SaveSettings(*p.Settings); err != nil {
				return nil, err
			}
		}
		return set, nil
	})
	if err != nil {
		return nil, rpcError(err)
	}
	rs.log.Info("server: imported %d reminders", len(p.Reminders))
	return listResult(set), nil
}

func (rs *RPCServer) reminderStatus(ctx context.Context) (*StatusResult, error) {
	st, err := rs.sched.Status(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	if st == nil {
		st = []scheduler.Status{}
	}
	return &StatusResult{Reminders: st}, nil
}

func (rs *RPCServer) settingsGet(_ context.Context) (*reminder.Settings, error) {
	st, err := rs.store.Settings()
	if err != nil {
		return nil, rpcError(err)
	}
	st.GeolocUsage = st.Policy()
	return &st, nil
}

// settingsSet stores the settings and reconciles so astronomical reminders
// pick up the new policy and coordinates.
func (rs *RPCServer) settingsSet(ctx context.Context, p *reminder.Settings) (*reminder.Settings, error) {
	if err := p.Validate(); err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	_, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
		if err := rs.store.SaveSettings(*p); err != nil {
			return nil, err
		}
		return rs.store.Get()
	})
	if err != nil {
		return nil, rpcError(err)
	}
	return rs.settingsGet(ctx)
}

// locationRetrieve asks the live source for a position regardless of the
// stored policy, optionally saving it as the manual coordinates.
func (rs *RPCServer) locationRetrieve(ctx context.Context, p *LocationParams) (*LocationResult, error) {
	c, err := rs.provider.Resolve(ctx, geo.PolicyAlways, geo.Manual{})
	if err != nil {
		return nil, &jrpc2.Error{Code: CodeLocation, Message: err.Error()}
	}
	if p.Save {
		_, err := rs.sched.Update(ctx, func() (reminder.Set, error) {
			st, err := rs.store.Settings()
			if err != nil {
				return nil, err
			}
			m := geo.ManualFrom(c)
			st.Latitude, st.Longitude = m.Latitude, m.Longitude
			if err := rs.store.SaveSettings(st); err != nil {
				return nil, err
			}
			return rs.store.Get()
		})
		if err != nil {
			return nil, rpcError(err)
		}
	}
	return &LocationResult{Latitude: c.Latitude, Longitude: c.Longitude}, nil
}

func (rs *RPCServer) eventsTimes(ctx context.Context, p *TimesParams) (*TimesResult, error) {
	date := rs.now()
	if p.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, p.Date, time.Local)
		if err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid date: " + p.Date}
		}
		// anchor at noon so the calculator sees the intended day
		date = d.Add(12 * time.Hour)
	}
	st, err := rs.store.Settings()
	if err != nil {
		return nil, rpcError(err)
	}
	c, err := rs.provider.Resolve(ctx, st.Policy(), st.Manual())
	if err != nil {
		return nil, &jrpc2.Error{Code: CodeLocation, Message: err.Error()}
	}
	res := &TimesResult{
		Date:      date.Format(time.DateOnly),
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
	for _, o := range rs.resolver.Today(date, c) {
		et := EventTime{Event: string(o.Event)}
		if o.Err != nil {
			et.Error = o.Err.Error()
		} else {
			ts := o.Time
			et.Time = &ts
		}
		res.Events = append(res.Events, et)
	}
	return res, nil
}

// rpcError maps package errors onto application codes.
func rpcError(err error) error {
	var je *jrpc2.Error
	switch {
	case errors.As(err, &je):
		return je
	case errors.Is(err, reminder.ErrNotFound):
		return &jrpc2.Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, reminder.ErrDuplicateName):
		return &jrpc2.Error{Code: CodeDuplicateName, Message: err.Error()}
	case errors.Is(err, reminder.ErrInvalid):
		return &jrpc2.Error{Code: CodeInvalidReminder, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &jrpc2.Error{Code: CodeStorage, Message: err.Error()}
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
