package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Fallback tries Primary and switches to Secondary once Primary reports
// ErrProtocolUnsupported. The switch is remembered for the provider's
// lifetime. Any other error from Primary is returned unchanged.
type Fallback struct {
	Primary   Provider
	Secondary Provider

	log      *slog.Logger
	switched atomic.Bool
}

// NewFallback pairs a primary protocol with its fallback.
func NewFallback(primary, secondary Provider, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{Primary: primary, Secondary: secondary, log: log}
}

func (f *Fallback) Name() string {
	if f.switched.Load() {
		return f.Secondary.Name()
	}
	return f.Primary.Name()
}

func (f *Fallback) Complete(ctx context.Context, req Request) (string, error) {
	if f.switched.Load() {
		return f.Secondary.Complete(ctx, req)
	}
	out, err := f.Primary.Complete(ctx, req)
	if err == nil || !errors.Is(err, ErrProtocolUnsupported) {
		return out, err
	}
	f.log.Info("primary protocol unsupported, switching", "from", f.Primary.Name(), "to", f.Secondary.Name())
	f.switched.Store(true)
	return f.Secondary.Complete(ctx, req)
}
