package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// unlocker builds the pro upgrade flow over the configured PayPal account.
func (r *Runner) unlocker(ctx context.Context) (*payment.Unlocker, error) {
	e, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	return payment.NewUnlocker(r.gateway(), e.adapter, nil, r.logger, nil), nil
}

// UpgradeOrder creates a PayPal order and opens its approval page.
func (r *Runner) UpgradeOrder(ctx context.Context, cmd *cli.Command) error {
	u, err := r.unlocker(ctx)
	if err != nil {
		return err
	}

	order, err := u.CreateOrder(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", err, payment.Notice(err).Description)
	}

	r.writePlain("→ Order %s created (%s)\n", order.ID, payment.OrderDescription)
	if !cmd.Bool("no-browser") {
		if err := shared.OpenBrowser(order.ApproveURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}
	r.writePlain("Approve the payment at:\n%s\n\n", order.ApproveURL)
	r.writePlain("Then run 'bowl upgrade capture --order %s'\n", order.ID)
	return nil
}

// UpgradeCapture captures an approved order and records the unlock.
func (r *Runner) UpgradeCapture(ctx context.Context, cmd *cli.Command) error {
	u, err := r.unlocker(ctx)
	if err != nil {
		return err
	}

	if err := u.Unlock(ctx, cmd.String("order")); err != nil {
		return fmt.Errorf("%w: %s", err, payment.Notice(err).Description)
	}
	return r.writePlain("✓ Pro unlocked: guest sessions are no longer limited\n")
}
