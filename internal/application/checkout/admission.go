package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Defaults for the per-customer issuance throttle
const (
	DefaultRateWindow = 60 * time.Second
	DefaultRateLimit  = 1
)

// AdmissionControl throttles issuance attempts per customer email. The
// counter is pluggable so multi-instance deployments can share a Redis-backed
// window while tests and single-node setups use an in-memory one.
type AdmissionControl struct {
	counter shared.RateCounter
	window  time.Duration
	limit   int64
	logger  *zap.Logger
}

// AdmissionControlConfig holds the throttle parameters
type AdmissionControlConfig struct {
	Counter shared.RateCounter
	Window  time.Duration
	Limit   int64
	Logger  *zap.Logger
}

// NewAdmissionControl creates the issuance throttle
func NewAdmissionControl(cfg AdmissionControlConfig) *AdmissionControl {
	window := cfg.Window
	if window <= 0 {
		window = DefaultRateWindow
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionControl{
		counter: cfg.Counter,
		window:  window,
		limit:   limit,
		logger:  logger,
	}
}

// Admit records one attempt for the customer and rejects it when the window
// already holds the allowed count. A counter failure admits the request: the
// throttle protects against accidental double-submission, not outages.
func (a *AdmissionControl) Admit(ctx context.Context, customerEmail string) error {
	if a.counter == nil {
		return nil
	}
	key := "boleto:issue:" + normalizeEmail(customerEmail)
	count, err := a.counter.Increment(ctx, key, a.window)
	if err != nil {
		a.logger.Warn("Rate counter unavailable, admitting request", zap.Error(err))
		return nil
	}
	if count > a.limit {
		a.logger.Info("Issuance throttled",
			zap.String("customer_email", normalizeEmail(customerEmail)),
			zap.Int64("count", count))
		return shared.ErrRateLimited
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
