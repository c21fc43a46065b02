package service

import (
	"context"

	"okean/internal/domain"

	"go.uber.org/zap"
)

// Notifier is invoked as a best-effort side effect after an order exists.
// Implementations must not block order creation; failures are theirs to log.
type Notifier interface {
	OrderCreated(ctx context.Context, order *domain.Order)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a Notifier that records order creation in the log.
// It stands in for the email and payment gateway hooks.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) OrderCreated(_ context.Context, order *domain.Order) {
	n.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.String("payment_method", string(order.PaymentMethod)),
	)
}
