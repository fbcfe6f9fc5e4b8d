// Package validate implements the Validation Pipeline: a
// per-node registry of validators keyed by event name, and the sole
// channel from raw input to a validated "stream" emission.
//
// A validator is a plain function type: data is already arranged to the
// validator's declared arity before the call, so the validator never has
// to count its own arguments or locate a completion callback by position.
package validate

import (
	"context"
	"errors"
	"sync"

	"github.com/primus/primacron/internal/gatewayerr"
)

// ErrValidatorMissing is the error attached to error::validation when no
// validator is registered for an event.
var ErrValidatorMissing = errors.New("Validator missing")

// Complete is the continuation a validator calls exactly once when it has
// finished. err != nil or ok == false rejects the message; transformed, if
// non-nil, replaces the data argument list attached to the stream
// emission.
type Complete func(err error, ok bool, transformed []any)

// Func is a registered validator. len(data) == arity-1: missing positions
// are nil, extra positions are truncated — the caller guarantees this
// before invoking the validator.
type Func func(ctx context.Context, data []any, complete Complete)

type registration struct {
	fn    Func
	arity int
}

// Pipeline is the per-node validator registry.
type Pipeline struct {
	mu   sync.RWMutex
	regs map[string][]registration

	// onStream fires once per successful validator completion, carrying
	// data truncated to arity-1 alongside the raw payload and user
	// (connection id) that produced it.
	onStream func(event string, data []any, raw, user string)
	// onError fires for every rejected or unvalidatable message.
	onError func(gatewayerr.Event)
}

// NewPipeline returns an empty Pipeline wired to the given stream/error
// sinks.
func NewPipeline(onStream func(event string, data []any, raw, user string), onError func(gatewayerr.Event)) *Pipeline {
	return &Pipeline{
		regs:     make(map[string][]registration),
		onStream: onStream,
		onError:  onError,
	}
}

// Register adds a validator for event with its declared arity. Multiple
// registrations for the same event are permitted; each is attached as an
// independent listener.
func (p *Pipeline) Register(event string, fn Func, arity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs[event] = append(p.regs[event], registration{fn: fn, arity: arity})
}

// Registered reports whether at least one validator is registered for
// event.
func (p *Pipeline) Registered(event string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.regs[event]) > 0
}

// EventNames returns every event name with at least one registered
// validator, for admin/CLI introspection.
func (p *Pipeline) EventNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.regs))
	for name := range p.regs {
		names = append(names, name)
	}
	return names
}

// Validate invokes every validator registered for event with the supplied
// data arguments (already excluding user/raw, which the Connection Manager
// strips before calling in), fitting each to its validator's declared
// arity. If no validator is registered, it emits error::validation with
// ErrValidatorMissing and returns without ever reaching application code —
// the central safety invariant.
func (p *Pipeline) Validate(ctx context.Context, event string, data []any, user, raw string) {
	p.mu.RLock()
	regs := append([]registration(nil), p.regs[event]...)
	p.mu.RUnlock()

	if len(regs) == 0 {
		p.emitError(event, raw, user, ErrValidatorMissing)
		return
	}

	for _, reg := range regs {
		fitted := fitArity(data, reg.arity)
		reg.fn(ctx, fitted, func(err error, ok bool, transformed []any) {
			if err != nil || !ok {
				p.emitError(event, raw, user, err)
				return
			}
			out := fitted
			if transformed != nil {
				out = transformed
			}
			p.onStream(event, out, raw, user)
		})
	}
}

func (p *Pipeline) emitError(event, raw, user string, err error) {
	if p.onError == nil {
		return
	}
	p.onError(gatewayerr.Event{
		Kind: gatewayerr.KindValidation,
		Err:  err,
		Context: map[string]any{
			"event": event,
			"raw":   raw,
			"user":  user,
		},
	})
}

// fitArity returns a slice of length arity-1: the leading positions filled
// from data, any remaining positions left as the zero value (nil), and any
// surplus positions in data truncated.
func fitArity(data []any, arity int) []any {
	n := arity - 1
	if n < 0 {
		n = 0
	}
	out := make([]any, n)
	copy(out, data)
	return out
}
