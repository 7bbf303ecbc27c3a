package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds a single reply when none is configured.
const DefaultTimeout = 30 * time.Second

var (
	ErrUpstreamFailure = errors.New("ai upstream failure")

	ErrUpstreamUnavailable = fmt.Errorf("%w: unavailable", ErrUpstreamFailure)
	ErrUpstream            = fmt.Errorf("%w: error response", ErrUpstreamFailure)
	ErrTimeout             = fmt.Errorf("%w: timed out", ErrUpstreamFailure)
)

// Responder turns prompt context into reply text using one provider and a
// fixed model id. Calls are independent; no state is kept between them.
type Responder struct {
	provider Provider
	model    string
	timeout  time.Duration
	prefix   string
}

func NewResponder(provider Provider, model string, timeout time.Duration, prefix string) *Responder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Responder{provider: provider, model: model, timeout: timeout, prefix: prefix}
}

// Model is the id recorded on messages this responder produces.
func (r *Responder) Model() string { return r.model }

// Respond returns the reply text or an error wrapping ErrUpstreamFailure.
func (r *Responder) Respond(ctx context.Context, messages []Message) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrUpstreamUnavailable)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.provider.Chat(cctx, messages)
	if err != nil {
		return "", classify(cctx, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrUpstream)
	}
	return r.prefix + reply, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrUpstreamFailure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
