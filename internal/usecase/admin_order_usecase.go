package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/logger"
	"foodorder/internal/infra/telemetry"
	repo "foodorder/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultAdminListLimit = 20
	maxAdminListLimit     = 100
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	users repo.UserRepository
	clock Clock
	log   *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, users repo.UserRepository, clock Clock, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, users: users, clock: clock, log: log}
}

type ListOrdersFilter struct {
	// 空なら全ステータス
	Status string
	// 特定ユーザーの注文だけ（任意）
	UserID *int64
	Page   int
	Limit  int
}

type OrderCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type AdminOrderOutput struct {
	OrderOutput
	Customer OrderCustomer `json:"customer"`
}

type AdminOrderList struct {
	Orders []AdminOrderOutput `json:"orders"`
	Total  int64              `json:"total"`
	Page   int                `json:"page"`
	Limit  int                `json:"limit"`
}

type SetStatusInput struct {
	Status string
}

type StatusChange struct {
	ActorUserID int64     `json:"actor_user_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}

// 監査ログのbefore/afterに入れる形
type statusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

// ListAll は全注文一覧（新しい順）。注文者の氏名・連絡先を付ける。
func (u *AdminOrderUsecase) ListAll(ctx context.Context, actor Actor, f ListOrdersFilter) (AdminOrderList, error) {
	if err := requireStaff(actor); err != nil {
		return AdminOrderList{}, err
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = defaultAdminListLimit
	}
	if f.Page < 1 {
		return AdminOrderList{}, NewError(KindValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > maxAdminListLimit {
		return AdminOrderList{}, NewError(KindValidation, "invalid limit")
	}

	filter := repo.OrderListFilter{Page: f.Page, Limit: f.Limit, UserID: f.UserID}
	if strings.TrimSpace(f.Status) != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return AdminOrderList{}, NewError(KindInvalidStatus, "unknown status")
		}
		filter.Status = st
	}

	var (
		orders []model.Order
		lines  = map[int64][]model.OrderLine{}
		total  int64
	)

	// 一覧と明細を同じスナップショットで読む
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		orders, total, err = r.Orders().List(ctx, filter)
		if err != nil {
			return internalError(err)
		}
		for _, o := range orders {
			ls, err := r.OrderLines().ListByOrderID(ctx, o.ID)
			if err != nil {
				return internalError(err)
			}
			lines[o.ID] = ls
		}
		return nil
	})
	if err != nil {
		return AdminOrderList{}, err
	}

	userIDs := make([]int64, 0, len(orders))
	seen := map[int64]bool{}
	for _, o := range orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			userIDs = append(userIDs, o.UserID)
		}
	}
	users, err := u.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return AdminOrderList{}, internalError(err)
	}

	outs := make([]AdminOrderOutput, 0, len(orders))
	for _, o := range orders {
		// 退会などでユーザーが引けなくても注文は出す
		c := users[o.UserID]
		outs = append(outs, AdminOrderOutput{
			OrderOutput: toOrderOutput(o, lines[o.ID]),
			Customer:    OrderCustomer{Name: c.Name, Email: c.Email, Phone: c.Phone},
		})
	}

	return AdminOrderList{Orders: outs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// SetStatus は注文ステータスを遷移表に沿って更新する。
// 同じステータスの再指定は（終端でなければ）何もせず成功。
func (u *AdminOrderUsecase) SetStatus(ctx context.Context, actor Actor, orderID int64, in SetStatusInput) (out OrderOutput, err error) {
	ctx, span := telemetry.StartSpan(ctx, "AdminOrderUsecase.SetStatus",
		attribute.Int64("order.id", orderID),
		attribute.Int64("actor.id", actor.UserID),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	log := logger.FromContext(ctx, u.log)

	if err := requireStaff(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindValidation, "invalid id")
	}

	next, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return OrderOutput{}, NewError(KindInvalidStatus, "unknown status")
	}

	var (
		prev    model.OrderStatus
		changed bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindOrderNotFound, "order not found")
		}
		if err != nil {
			return internalError(err)
		}
		prev = o.Status

		// 再送
		if o.Status == next && !o.Status.IsTerminal() {
			ls, err := r.OrderLines().ListByOrderID(ctx, o.ID)
			if err != nil {
				return internalError(err)
			}
			out = toOrderOutput(o, ls)
			return nil
		}

		if !model.CanTransition(o.Status, next) {
			return NewError(KindIllegalTransition, "cannot change status from "+string(o.Status)+" to "+string(next))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next); err != nil {
			switch {
			case errors.Is(err, repo.ErrConflict):
				return NewError(KindConflict, "order status was changed concurrently; reload and retry")
			case errors.Is(err, repo.ErrNotFound):
				return NewError(KindOrderNotFound, "order not found")
			}
			return internalError(err)
		}

		before, _ := json.Marshal(statusSnapshot{Status: o.Status})
		after, _ := json.Marshal(statusSnapshot{Status: next})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return internalError(err)
		}

		ls, err := r.OrderLines().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err)
		}
		o.Status = next
		out = toOrderOutput(o, ls)
		changed = true
		return nil
	})
	if err != nil {
		if _, ok := AsAppError(err); !ok {
			if errors.Is(err, repo.ErrConflict) {
				err = NewError(KindConflict, "order status was changed concurrently; reload and retry")
			} else {
				err = internalError(err)
			}
		}
		if KindOf(err) == KindInternal {
			log.Error("order status update failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return OrderOutput{}, err
	}

	if changed {
		log.Info("order status changed",
			zap.Int64("order_id", orderID),
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.Int64("actor_user_id", actor.UserID),
		)
	}
	return out, nil
}

// StatusHistory は監査ログからステータス変更履歴を返す（新しい順）。
func (u *AdminOrderUsecase) StatusHistory(ctx context.Context, actor Actor, orderID int64) ([]StatusChange, error) {
	if err := requireStaff(actor); err != nil {
		return []StatusChange{}, err
	}
	if orderID <= 0 {
		return []StatusChange{}, NewError(KindValidation, "invalid id")
	}

	resource := model.AuditResourceOrder
	var logs []model.AuditLog

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindOrderNotFound, "order not found")
			}
			return internalError(err)
		}

		var err error
		logs, err = r.AuditLogs().List(ctx, repo.AuditLogFilter{ResourceType: &resource, ResourceID: &orderID})
		if err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return []StatusChange{}, err
	}

	log := logger.FromContext(ctx, u.log)
	changes := make([]StatusChange, 0, len(logs))
	for _, l := range logs {
		if l.Action != model.AuditActionUpdateOrderStatus {
			continue
		}
		var before, after statusSnapshot
		if err := decodeStatusSnapshots(l, &before, &after); err != nil {
			// 壊れた行は空の遷移として見せずに飛ばす
			log.Warn("skipping unreadable audit log row",
				zap.Int64("audit_log_id", l.ID),
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
			continue
		}
		changes = append(changes, StatusChange{
			ActorUserID: l.ActorUserID,
			From:        string(before.Status),
			To:          string(after.Status),
			ChangedAt:   l.CreatedAt,
		})
	}
	return changes, nil
}

func decodeStatusSnapshots(l model.AuditLog, before, after *statusSnapshot) error {
	if err := json.Unmarshal([]byte(l.BeforeJSON), before); err != nil {
		return fmt.Errorf("before: %w", err)
	}
	if err := json.Unmarshal([]byte(l.AfterJSON), after); err != nil {
		return fmt.Errorf("after: %w", err)
	}
	if !before.Status.Valid() || !after.Status.Valid() {
		return fmt.Errorf("unknown status %q -> %q", before.Status, after.Status)
	}
	return nil
}
