package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
)

var (
	_ purchase.Repository       = (*PurchaseRepo)(nil)
	_ service_record.Repository = (*ServiceRecordRepo)(nil)
	_ service_parts.Repository  = (*ServicePartsRepo)(nil)
	_ invoice.Repository        = (*InvoiceRepo)(nil)
	_ audit.Recorder            = (*Auditor)(nil)
	_ audit.History             = (*Auditor)(nil)
)

// --- Purchases ---

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct{ s *Store }

func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[p.ItemID]; !ok {
			return apperror.NewConflict("purchase references a missing item").WithDetail("itemId", p.ItemID)
		}
		st.nextPurchase++
		p.PurchaseID = st.nextPurchase
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
		st.purchases[p.PurchaseID] = *p
		return nil
	})
}

func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID int64) (*purchase.Purchase, error) {
	var out *purchase.Purchase
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.purchases[purchaseID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityPurchase, purchaseID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *PurchaseRepo) GetForUpdate(ctx context.Context, purchaseID int64) (*purchase.Purchase, error) {
	return r.GetByID(ctx, purchaseID)
}

func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	return r.s.do(ctx, func(st *state) error {
		current, ok := st.purchases[p.PurchaseID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityPurchase, p.PurchaseID)
		}
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = r.s.now()
		st.purchases[p.PurchaseID] = *p
		return nil
	})
}

func (r *PurchaseRepo) Delete(ctx context.Context, purchaseID int64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.purchases[purchaseID]; !ok {
			return apperror.NewNotFound(apperror.EntityPurchase, purchaseID)
		}
		for _, l := range st.lots {
			if l.PurchaseID != nil && *l.PurchaseID == purchaseID {
				return apperror.NewConflict("purchase still has a stock lot").WithDetail("stockId", l.StockID)
			}
		}
		delete(st.purchases, purchaseID)
		return nil
	})
}

func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) (domain.ListResult[*purchase.Purchase], error) {
	res := domain.ListResult[*purchase.Purchase]{Limit: filter.Limit, Offset: filter.Offset}
	err := r.s.do(ctx, func(st *state) error {
		matched := make([]*purchase.Purchase, 0)
		for _, p := range st.purchases {
			if filter.ItemID != nil && p.ItemID != *filter.ItemID {
				continue
			}
			found := p
			matched = append(matched, &found)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].PurchaseDate.Equal(matched[j].PurchaseDate) {
				return matched[i].PurchaseDate.After(matched[j].PurchaseDate)
			}
			return matched[i].PurchaseID > matched[j].PurchaseID
		})
		res.TotalCount = int64(len(matched))
		res.Items = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return res, err
}

// --- Service records ---

// ServiceRecordRepo implements service_record.Repository.
type ServiceRecordRepo struct{ s *Store }

func (r *ServiceRecordRepo) Create(ctx context.Context, rec *service_record.ServiceRecord) error {
	return r.s.do(ctx, func(st *state) error {
		st.nextService++
		rec.ServiceID = st.nextService
		rec.CreatedAt = r.s.now()
		rec.UpdatedAt = rec.CreatedAt
		st.services[rec.ServiceID] = *rec
		return nil
	})
}

func (r *ServiceRecordRepo) GetByID(ctx context.Context, serviceID int64) (*service_record.ServiceRecord, error) {
	var out *service_record.ServiceRecord
	err := r.s.do(ctx, func(st *state) error {
		rec, ok := st.services[serviceID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityServiceRecord, serviceID)
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r *ServiceRecordRepo) GetForUpdate(ctx context.Context, serviceID int64) (*service_record.ServiceRecord, error) {
	return r.GetByID(ctx, serviceID)
}

func (r *ServiceRecordRepo) Update(ctx context.Context, rec *service_record.ServiceRecord) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.services[rec.ServiceID]; !ok {
			return apperror.NewNotFound(apperror.EntityServiceRecord, rec.ServiceID)
		}
		rec.UpdatedAt = r.s.now()
		st.services[rec.ServiceID] = *rec
		return nil
	})
}

func (r *ServiceRecordRepo) Delete(ctx context.Context, serviceID int64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.services[serviceID]; !ok {
			return apperror.NewNotFound(apperror.EntityServiceRecord, serviceID)
		}
		for k := range st.usages {
			if k.serviceID == serviceID {
				return apperror.NewConflict("service record still has part usages")
			}
		}
		delete(st.services, serviceID)
		delete(st.invoices, serviceID)
		return nil
	})
}

func (r *ServiceRecordRepo) Exists(ctx context.Context, serviceID int64) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		_, ok = st.services[serviceID]
		return nil
	})
	return ok, err
}

// --- Service part usages ---

// ServicePartsRepo implements service_parts.Repository.
type ServicePartsRepo struct{ s *Store }

func (r *ServicePartsRepo) ListUsages(ctx context.Context, serviceID int64) ([]*service_parts.Usage, error) {
	out := make([]*service_parts.Usage, 0)
	err := r.s.do(ctx, func(st *state) error {
		for k, u := range st.usages {
			if k.serviceID == serviceID {
				found := u
				out = append(out, &found)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StockID < out[j].StockID })
		return nil
	})
	return out, err
}

func (r *ServicePartsRepo) ListUsagesForUpdate(ctx context.Context, serviceID int64) ([]*service_parts.Usage, error) {
	return r.ListUsages(ctx, serviceID)
}

func (r *ServicePartsRepo) AddUsage(ctx context.Context, serviceID, stockID, quantity int64) (int64, error) {
	var total int64
	err := r.s.do(ctx, func(st *state) error {
		if _, ok := st.services[serviceID]; !ok {
			return apperror.NewConflict("usage references a missing service record")
		}
		if _, ok := st.lots[stockID]; !ok {
			return apperror.NewConflict("usage references a missing stock lot")
		}
		if quantity <= 0 {
			return apperror.NewValidation("quantity used must be positive")
		}

		key := usageKey{serviceID: serviceID, stockID: stockID}
		now := r.s.now()
		u, ok := st.usages[key]
		if !ok {
			u = service_parts.Usage{ServiceID: serviceID, StockID: stockID, CreatedAt: now}
		}
		u.QuantityUsed += quantity
		u.UpdatedAt = now
		st.usages[key] = u
		total = u.QuantityUsed
		return nil
	})
	return total, err
}

func (r *ServicePartsRepo) DeleteUsages(ctx context.Context, serviceID int64) error {
	return r.s.do(ctx, func(st *state) error {
		for k := range st.usages {
			if k.serviceID == serviceID {
				delete(st.usages, k)
			}
		}
		return nil
	})
}

func (r *ServicePartsRepo) ListLines(ctx context.Context, serviceID int64) ([]service_parts.Line, error) {
	out := make([]service_parts.Line, 0)
	err := r.s.do(ctx, func(st *state) error {
		for k, u := range st.usages {
			if k.serviceID != serviceID {
				continue
			}
			lot := st.lots[k.stockID]
			out = append(out, service_parts.Line{
				StockID:   k.stockID,
				ItemID:    lot.ItemID,
				ItemName:  st.items[lot.ItemID].Name,
				Quantity:  u.QuantityUsed,
				UnitPrice: lot.SellingPrice,
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StockID < out[j].StockID })
		return nil
	})
	return out, err
}

// --- Invoices ---

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct{ s *Store }

func (r *InvoiceRepo) GetByServiceID(ctx context.Context, serviceID int64) (*invoice.Invoice, error) {
	var out *invoice.Invoice
	err := r.s.do(ctx, func(st *state) error {
		inv, ok := st.invoices[serviceID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityInvoice, invoice.InvoiceID(serviceID))
		}
		inv.Lines = slices.Clone(inv.Lines)
		out = &inv
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.services[inv.ServiceID]; !ok {
			return apperror.NewConflict("invoice references a missing service record")
		}
		now := r.s.now()
		stored := *inv
		stored.Lines = slices.Clone(inv.Lines)
		if current, ok := st.invoices[inv.ServiceID]; ok {
			stored.InvoiceID = current.InvoiceID
			stored.CreatedAt = current.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		st.invoices[inv.ServiceID] = stored

		inv.InvoiceID = stored.InvoiceID
		inv.CreatedAt = stored.CreatedAt
		inv.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

// InvoiceCount returns the number of stored invoices.
func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.invoices)
}

// --- Audit ---

// Auditor implements audit.Recorder and audit.History.
type Auditor struct{ s *Store }

func (a *Auditor) Record(ctx context.Context, entry audit.Entry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return a.s.do(ctx, func(st *state) error {
		st.audit = append(st.audit, audit.TrailEntry{
			ID:         fmt.Sprintf("%d", len(st.audit)+1),
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Action:     entry.Action,
			UserID:     entry.UserID,
			RequestID:  audit.RequestOf(ctx),
			Changes:    changes,
			CreatedAt:  a.s.now(),
		})
		return nil
	})
}

func (a *Auditor) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.TrailEntry, error) {
	out := make([]audit.TrailEntry, 0)
	err := a.s.do(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			e := st.audit[i]
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		out = page(out, limit, 0)
		return nil
	})
	return out, err
}

// AuditEntries returns a copy of the recorded audit trail.
func (s *Store) AuditEntries() []audit.TrailEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.TrailEntry(nil), s.st.audit...)
}
