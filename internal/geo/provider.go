package geo

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/brettz9/sundriven/pkg/logger"
)

// Source is a live location provider.
type Source interface {
	// Current requests a single position.
	Current(ctx context.Context) (Coordinates, error)
	// Watch subscribes to position updates until the returned Watch is
	// cleared. Callbacks may run on any goroutine.
	Watch(onUpdate func(Coordinates), onError func(error)) (Watch, error)
}

// Watch is an active subscription.
type Watch interface {
	// Clear releases the subscription. Calling it more than once is safe.
	Clear()
}

type watchFunc func()

func (f watchFunc) Clear() { f() }

type nopWatch struct{}

func (nopWatch) Clear() {}

// Provider applies a Policy on top of a Source and the manual coordinates.
type Provider struct {
	source Source
	log    logger.Logger
}

// NewProvider creates a Provider. A nil source behaves as NoSource.
func NewProvider(source Source, l logger.Logger) *Provider {
	if source == nil {
		source = NoSource{}
	}
	return &Provider{source: source, log: logger.OrNop(l)}
}

// Source returns the underlying live source.
func (p *Provider) Source() Source {
	return p.source
}

// Resolve yields coordinates for policy:
//   - never: manual, or ErrInvalidManualCoordinates
//   - always: live, or a *PositionError
//   - when-available: live, else manual, else ErrNoCoordinatesAvailable
func (p *Provider) Resolve(ctx context.Context, policy Policy, manual Manual) (Coordinates, error) {
	if policy == PolicyNever {
		return manual.Coordinates()
	}
	c, err := p.source.Current(ctx)
	if err == nil {
		return c, nil
	}
	return p.fallback(policy, err, manual)
}

func (p *Provider) fallback(policy Policy, err error, manual Manual) (Coordinates, error) {
	posErr := AsPositionError(err)
	if policy == PolicyAlways {
		return Coordinates{}, posErr
	}
	p.log.Warning("geo: live position failed, trying manual coordinates: %v", posErr)
	c, merr := manual.Coordinates()
	if merr != nil {
		return Coordinates{}, fmt.Errorf("%w: %w", ErrNoCoordinatesAvailable, posErr)
	}
	return c, nil
}

// Watch is the streaming form of Resolve. fn receives the outcome of every
// resolution until the returned Watch is cleared; manual is read each time
// a fallback is needed. Under PolicyNever fn is called once, synchronously.
func (p *Provider) Watch(policy Policy, manual func() Manual, fn func(Coordinates, error)) Watch {
	if policy == PolicyNever {
		fn(manual().Coordinates())
		return nopWatch{}
	}
	var cleared atomic.Bool
	deliver := func(c Coordinates, err error) {
		if cleared.Load() {
			return
		}
		fn(c, err)
	}
	onErr := func(err error) {
		deliver(p.fallback(policy, err, manual()))
	}
	w, err := p.source.Watch(func(c Coordinates) { deliver(c, nil) }, onErr)
	if err != nil {
		onErr(err)
		return nopWatch{}
	}
	return watchFunc(func() {
		if cleared.CompareAndSwap(false, true) {
			w.Clear()
		}
	})
}

// NoSource is the Source used when live location is disabled.
type NoSource struct{}

func (NoSource) Current(context.Context) (Coordinates, error) {
	return Coordinates{}, ErrUnsupported
}

func (NoSource) Watch(func(Coordinates), func(error)) (Watch, error) {
	return nil, ErrUnsupported
}

var _ Source = NoSource{}
