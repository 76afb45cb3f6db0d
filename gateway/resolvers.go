package gateway

import (
	"context"

	"github.com/dualcube/paygw-authorizenet/gateway/models"
)

// ConfigAccountResolver serves the single merchant account from the service
// configuration, regardless of payable context.
type ConfigAccountResolver struct {
	Account models.GatewayAccount
}

func (r ConfigAccountResolver) GatewayAccount(ctx context.Context, component, paymentArea string, itemID int64) (*models.GatewayAccount, error) {
	account := r.Account
	return &account, nil
}

// PayableFunc adapts a function to PayableResolver.
type PayableFunc func(ctx context.Context, component, paymentArea string, itemID int64) (*models.Payable, error)

func (f PayableFunc) Payable(ctx context.Context, component, paymentArea string, itemID int64) (*models.Payable, error) {
	return f(ctx, component, paymentArea, itemID)
}

// DelivererFunc adapts a function to OrderDeliverer.
type DelivererFunc func(ctx context.Context, component, paymentArea string, itemID int64, paymentID, userID string) error

func (f DelivererFunc) DeliverOrder(ctx context.Context, component, paymentArea string, itemID int64, paymentID, userID string) error {
	return f(ctx, component, paymentArea, itemID, paymentID, userID)
}
