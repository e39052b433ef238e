package memstore

import (
	"context"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

type AuditLogRepository struct {
	h handle
}

func (r *AuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.h.do(func(st *state) error {
		log.ID = st.nextID()
		if log.CreatedAt.IsZero() {
			log.CreatedAt = r.h.s.now()
		}
		st.auditLogs = append(st.auditLogs, log)
		return nil
	})
}

// 新しい順（追加順の逆）
func (r *AuditLogRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out := []model.AuditLog{}
	err := r.h.do(func(st *state) error {
		for i := len(st.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
			l := st.auditLogs[i]
			if filter.ResourceType != nil && l.ResourceType != *filter.ResourceType {
				continue
			}
			if filter.ResourceID != nil && l.ResourceID != *filter.ResourceID {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	return out, err
}
