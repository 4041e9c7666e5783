package ipc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/internal/ipc/schema"
	"go.uber.org/zap"
)

// Broker is the subset of the engine supervisor the IPC surface
// needs. Narrowed to an interface so tests can count writes.
type Broker interface {
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
	SubscribeEvents(h engine.EventHandler) func()
	SubscribeStatus(h engine.StatusHandler) func()
	Status() engine.Status
}

var _ Broker = (*engine.Supervisor)(nil)

// IPC is the UI-boundary call surface. Every UI-originated call
// crosses into the engine channel here and nowhere else, so the
// method gatekeeper and param validation are enforced exactly once.
type IPC struct {
	broker Broker
	schema *schema.Schema

	log *zap.Logger
}

func New(broker Broker, log *zap.Logger) (*IPC, error) {
	s, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build param schemas: %w", err)
	}

	return &IPC{
		broker: broker,
		schema: s,
		log:    log,
	}, nil
}

// Invoke forwards one gatekept call to the engine.
func (i *IPC) Invoke(
	ctx context.Context,
	method string,
	params map[string]any,
) (json.RawMessage, error) {
	if !Authorized(method) {
		i.log.Warn("rejecting unauthorized method", zap.String("method", method))
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedMethod, method)
	}

	if err := i.schema.Validate(method, params); err != nil {
		return nil, err
	}

	return i.broker.Call(ctx, method, params)
}

// OnEvent registers a UI-side event listener. The returned function
// removes the subscription.
func (i *IPC) OnEvent(h engine.EventHandler) func() {
	return i.broker.SubscribeEvents(h)
}

// OnStatus registers a UI-side connectivity listener. The returned
// function removes the subscription.
func (i *IPC) OnStatus(h engine.StatusHandler) func() {
	return i.broker.SubscribeStatus(h)
}

// Status returns the engine's current connectivity.
func (i *IPC) Status() engine.Status {
	return i.broker.Status()
}
