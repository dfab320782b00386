// Package payment runs the one-time pro unlock.
//
// A [Gateway] creates an order the payer approves out of band, then captures it. [Unlocker] turns a successful
// capture into the stored pro flag and tells the session hub, which lifts the guest limit straight away.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/bowlstone/internal/metrics"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// Order description and default price.
const (
	OrderDescription = "Over one task - Pro Upgrade"
	DefaultAmount    = "5.00"
	DefaultCurrency  = "USD"
)

// ErrNotConfigured is returned when no payment credentials are set.
var ErrNotConfigured = errors.New("payment provider not configured")

// Order is a created, not yet captured, order.
type Order struct {
	ID         string `json:"id"`
	ApproveURL string `json:"approve_url,omitempty"`
}

// Gateway is the payment collaborator.
type Gateway interface {
	CreateOrder(ctx context.Context) (Order, error)
	CaptureOrder(ctx context.Context, orderID string) error
}

// FlagWriter stores the pro flag. [persist.Adapter] implements it.
type FlagWriter interface {
	SetProFlag(ctx context.Context) error
}

// Unlocker captures orders and records the unlock.
type Unlocker struct {
	gateway Gateway
	flags   FlagWriter
	hub     *session.Hub
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewUnlocker wires a gateway to the flag store and hub. hub and m may be nil.
func NewUnlocker(gw Gateway, flags FlagWriter, hub *session.Hub, logger *log.Logger, m *metrics.Metrics) *Unlocker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Unlocker{gateway: gw, flags: flags, hub: hub, logger: logger, metrics: m}
}

// CreateOrder starts a purchase.
func (u *Unlocker) CreateOrder(ctx context.Context) (Order, error) {
	if u.gateway == nil {
		return Order{}, ErrNotConfigured
	}
	return u.gateway.CreateOrder(ctx)
}

// Unlock captures orderID and, on success, stores the pro flag and updates the hub.
//
// A failed flag write is logged only: the unlock still applies to the running session.
func (u *Unlocker) Unlock(ctx context.Context, orderID string) error {
	if u.gateway == nil {
		return ErrNotConfigured
	}
	if orderID == "" {
		return fmt.Errorf("%w: order id", shared.ErrMissingArgument)
	}

	if err := u.gateway.CaptureOrder(ctx, orderID); err != nil {
		u.logger.Warn("payment capture failed", "order", orderID, "error", err)
		return err
	}

	if err := u.flags.SetProFlag(ctx); err != nil {
		u.logger.Warn("failed to store pro flag", "error", err)
	}
	if u.hub != nil {
		u.hub.SetPro(true)
	}
	u.metrics.IncrementUnlocks()
	u.logger.Info("pro unlocked", "order", orderID)
	return nil
}

// Notice turns a payment failure into the message shown to the user.
func Notice(err error) *shared.Notice {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotConfigured):
		return shared.NewNotice("PayPal Not Configured", "Payments are not available right now.")
	case errors.Is(err, shared.ErrMissingArgument):
		return shared.NewNotice("Payment Error", "Could not finalize payment.")
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrAuthFailed):
		return shared.NewNotice("PayPal Error", "An error occurred with the PayPal transaction.")
	default:
		return shared.NewNotice("Payment Error", "An error occurred during payment.")
	}
}
