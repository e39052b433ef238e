package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/logger"
	"foodorder/internal/infra/telemetry"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxDeliveryAddressLen = 500
	maxIdempotencyKeyLen  = 255
)

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	lines  repo.OrderLineRepository
	ids    IDGenerator
	clock  Clock
	log    *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	lines repo.OrderLineRepository,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, lines: lines, ids: ids, clock: clock, log: log}
}

type PlaceOrderInput struct {
	DeliveryAddress string
	PaymentMethod   model.PaymentMethod
	// 任意。同じキーなら同じ注文を返す
	IdempotencyKey string
}

type OrderLineOutput struct {
	ItemID    int64           `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	PublicID        string            `json:"public_id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	DeliveryAddress string            `json:"delivery_address"`
	PaymentMethod   string            `json:"payment_method"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderLineOutput `json:"items"`
}

// PlaceOrder はカートを注文に変換してカートを空にする。
// 注文作成・明細作成・カートクリアは1トランザクションで、どれか失敗したら全部戻る。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (out OrderOutput, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderUsecase.PlaceOrder", attribute.Int64("user.id", userID))
	defer func() { telemetry.EndSpan(span, err) }()

	log := logger.FromContext(ctx, u.log)

	if userID <= 0 {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	address := strings.TrimSpace(in.DeliveryAddress)
	if address == "" {
		return OrderOutput{}, NewError(KindValidation, "delivery_address is required")
	}
	if len(address) > maxDeliveryAddressLen {
		return OrderOutput{}, NewError(KindValidation, "delivery_address is too long")
	}
	if !in.PaymentMethod.Valid() {
		return OrderOutput{}, NewError(KindValidation, "invalid payment_method")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return OrderOutput{}, NewError(KindValidation, "invalid idempotency key")
	}

	var (
		created  model.Order
		replayed bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return internalError(err)
			}
			if found {
				lines, err := r.OrderLines().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return internalError(err)
				}
				created = existing
				replayed = true
				out = toOrderOutput(existing, lines)
				return nil
			}
		}

		// コミットまでカート行をロックする
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindEmptyCart, "cart is empty")
		}
		if err != nil {
			return internalError(err)
		}

		cartLines, err := r.Carts().ListLines(ctx, cart.ID)
		if err != nil {
			return internalError(err)
		}
		if len(cartLines) == 0 {
			return NewError(KindEmptyCart, "cart is empty")
		}

		// スナップショット。1つでも解決できなければ注文しない
		orderLines := make([]model.OrderLine, 0, len(cartLines))
		for _, cl := range cartLines {
			item, err := r.Catalog().FindItemByID(ctx, cl.MenuItemID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindItemUnavailable, fmt.Sprintf("item %d is no longer on the menu", cl.MenuItemID))
			}
			if err != nil {
				return internalError(err)
			}
			if !item.IsAvailable {
				return NewError(KindItemUnavailable, fmt.Sprintf("%s is currently unavailable", item.Name))
			}

			orderLines = append(orderLines, model.OrderLine{
				MenuItemID: item.ID,
				Name:       item.Name,
				UnitPrice:  item.Price,
				Quantity:   cl.Quantity,
			})
		}

		now := u.clock.Now()
		order := model.Order{
			PublicID:        u.ids.NewID(),
			UserID:          userID,
			Status:          model.OrderStatusPending,
			TotalAmount:     model.OrderTotal(orderLines),
			DeliveryAddress: address,
			PaymentMethod:   in.PaymentMethod,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				// 同じキーで並行して注文中
				return NewError(KindConflict, "an order with this idempotency key is already being placed")
			}
			return internalError(err)
		}

		if err := r.OrderLines().CreateBulk(ctx, order.ID, orderLines); err != nil {
			return internalError(err)
		}

		// ここで失敗したら全部戻す。revisionがずれていれば注文に入っていない明細がある
		if err := r.Carts().Clear(ctx, cart.ID, cart.Revision); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewError(KindConflict, "cart was modified during checkout; reload and retry")
			}
			log.Error("cart clear failed after order creation; rolling back",
				zap.String("order_public_id", order.PublicID),
				zap.Int64("cart_id", cart.ID),
				zap.Error(err),
			)
			return internalError(err)
		}

		created = order
		out = toOrderOutput(order, orderLines)
		return nil
	})

	if err != nil {
		if ae, ok := AsAppError(err); ok {
			if ae.Kind == KindInternal {
				log.Error("checkout failed",
					zap.Int64("user_id", userID),
					zap.String("order_public_id", created.PublicID),
					zap.Error(ae.Err),
				)
			}
			return OrderOutput{}, err
		}
		if errors.Is(err, repo.ErrConflict) {
			log.Warn("checkout transaction conflicted", zap.Int64("user_id", userID), zap.Error(err))
			return OrderOutput{}, NewError(KindConflict, "checkout conflicted with another request; retry")
		}
		// commit失敗など
		log.Error("checkout transaction failed",
			zap.Int64("user_id", userID),
			zap.String("order_public_id", created.PublicID),
			zap.Error(err),
		)
		return OrderOutput{}, internalError(err)
	}

	if replayed {
		log.Info("order replayed by idempotency key", zap.String("order_public_id", created.PublicID))
	} else {
		log.Info("order placed",
			zap.String("order_public_id", created.PublicID),
			zap.Int64("user_id", userID),
			zap.String("total_amount", created.TotalAmount.StringFixed(2)),
			zap.Int("lines", len(out.Items)),
		)
	}
	span.SetAttributes(attribute.String("order.public_id", created.PublicID))
	return out, nil
}

// ListMyOrders は自分の注文（新しい順）。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []OrderOutput{}, internalError(err)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		lines, err := u.lines.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, internalError(err)
		}
		outs = append(outs, toOrderOutput(o, lines))
	}
	return outs, nil
}

// GetMyOrder は自分の注文1件。他人の注文は存在しない扱い。
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewError(KindOrderNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	if o.UserID != userID {
		return OrderOutput{}, NewError(KindOrderNotFound, "order not found")
	}

	lines, err := u.lines.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	return toOrderOutput(o, lines), nil
}

func toOrderOutput(o model.Order, lines []model.OrderLine) OrderOutput {
	items := make([]OrderLineOutput, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderLineOutput{
			ItemID:    l.MenuItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		PublicID:        o.PublicID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
		CreatedAt:       o.CreatedAt,
		Items:           items,
	}
}
