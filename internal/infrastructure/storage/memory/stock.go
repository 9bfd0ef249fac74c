package memory

import (
	"context"
	"sort"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/id"
	"serviceshop/internal/domain/registers/stock"
)

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
// The store lock stands in for row locks, so the locking reads are plain reads.
type StockRepo struct{ s *Store }

func copyLot(l stock.Lot) *stock.Lot {
	if l.PurchaseID != nil {
		pid := *l.PurchaseID
		l.PurchaseID = &pid
	}
	return &l
}

func (r *StockRepo) CreateLot(ctx context.Context, lot *stock.Lot) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[lot.ItemID]; !ok {
			return apperror.NewConflict("stock lot references a missing item").WithDetail("itemId", lot.ItemID)
		}
		if lot.AvailableQty < 0 {
			return apperror.NewValidation("available quantity cannot be negative")
		}
		st.nextLot++
		lot.StockID = st.nextLot
		lot.CreatedAt = r.s.now()
		st.lots[lot.StockID] = *copyLot(*lot)
		return nil
	})
}

func (r *StockRepo) GetLot(ctx context.Context, stockID int64) (*stock.Lot, error) {
	var out *stock.Lot
	err := r.s.do(ctx, func(st *state) error {
		l, ok := st.lots[stockID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityStock, stockID)
		}
		out = copyLot(l)
		return nil
	})
	return out, err
}

func (r *StockRepo) GetLotByPurchase(ctx context.Context, purchaseID int64) (*stock.Lot, error) {
	var out *stock.Lot
	err := r.s.do(ctx, func(st *state) error {
		for _, l := range st.lots {
			if l.PurchaseID != nil && *l.PurchaseID == purchaseID {
				out = copyLot(l)
				return nil
			}
		}
		return apperror.NewNotFound(apperror.EntityStock, purchaseID).WithDetail("purchaseId", purchaseID)
	})
	return out, err
}

// GetLotByPurchaseForUpdate needs no row lock: transactions already hold the store mutex.
func (r *StockRepo) GetLotByPurchaseForUpdate(ctx context.Context, purchaseID int64) (*stock.Lot, error) {
	return r.GetLotByPurchase(ctx, purchaseID)
}

func (r *StockRepo) LockLots(ctx context.Context, stockIDs []int64) ([]*stock.Lot, error) {
	out := make([]*stock.Lot, 0, len(stockIDs))
	err := r.s.do(ctx, func(st *state) error {
		ids := append([]int64(nil), stockIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, sid := range ids {
			if l, ok := st.lots[sid]; ok {
				out = append(out, copyLot(l))
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) ListLots(ctx context.Context, itemID int64, includeEmpty bool) ([]*stock.Lot, error) {
	out := make([]*stock.Lot, 0)
	err := r.s.do(ctx, func(st *state) error {
		for _, l := range st.lots {
			if l.ItemID != itemID || (!includeEmpty && l.AvailableQty <= 0) {
				continue
			}
			out = append(out, copyLot(l))
		}
		stock.SortFIFO(out)
		return nil
	})
	return out, err
}

func (r *StockRepo) ListAvailableLotsForUpdate(ctx context.Context, itemID int64) ([]*stock.Lot, error) {
	out := make([]*stock.Lot, 0)
	err := r.s.do(ctx, func(st *state) error {
		for _, l := range st.lots {
			if l.ItemID == itemID && l.AvailableQty > 0 {
				out = append(out, copyLot(l))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StockID < out[j].StockID })
		return nil
	})
	return out, err
}

func (r *StockRepo) TotalAvailable(ctx context.Context, itemID int64) (int64, error) {
	var total int64
	err := r.s.do(ctx, func(st *state) error {
		for _, l := range st.lots {
			if l.ItemID == itemID {
				total += l.AvailableQty
			}
		}
		return nil
	})
	return total, err
}

func (r *StockRepo) Decrement(ctx context.Context, stockID, n int64) (int64, error) {
	var remaining int64
	err := r.s.do(ctx, func(st *state) error {
		if err := r.s.injected(stockID); err != nil {
			return err
		}
		l, ok := st.lots[stockID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityStock, stockID)
		}
		if l.AvailableQty < n {
			return apperror.NewInsufficientStock(apperror.EntityStock, stockID, n, l.AvailableQty)
		}
		l.AvailableQty -= n
		st.lots[stockID] = l
		remaining = l.AvailableQty
		return nil
	})
	return remaining, err
}

func (r *StockRepo) Increment(ctx context.Context, stockID, n int64) (int64, error) {
	var available int64
	err := r.s.do(ctx, func(st *state) error {
		l, ok := st.lots[stockID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityStock, stockID)
		}
		if l.AvailableQty+n < 0 {
			return apperror.NewInsufficientStock(apperror.EntityStock, stockID, -n, l.AvailableQty)
		}
		l.AvailableQty += n
		st.lots[stockID] = l
		available = l.AvailableQty
		return nil
	})
	return available, err
}

func (r *StockRepo) UpdateLot(ctx context.Context, lot *stock.Lot) error {
	return r.s.do(ctx, func(st *state) error {
		current, ok := st.lots[lot.StockID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityStock, lot.StockID)
		}
		if lot.AvailableQty < 0 {
			return apperror.NewInsufficientStock(apperror.EntityStock, lot.StockID, -lot.AvailableQty, 0)
		}
		current.AvailableQty = lot.AvailableQty
		current.BuyingPrice = lot.BuyingPrice
		current.SellingPrice = lot.SellingPrice
		current.PurchaseDate = lot.PurchaseDate
		st.lots[lot.StockID] = current
		return nil
	})
}

func (st *state) lotReferenced(stockID int64) bool {
	for _, rel := range st.releases {
		if rel.StockID == stockID {
			return true
		}
	}
	for k := range st.usages {
		if k.stockID == stockID {
			return true
		}
	}
	return false
}

func (r *StockRepo) DeleteLot(ctx context.Context, stockID int64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.lots[stockID]; !ok {
			return apperror.NewNotFound(apperror.EntityStock, stockID)
		}
		if st.lotReferenced(stockID) {
			return apperror.NewConflict("stock lot is referenced by consumption records").
				WithDetail("stockId", stockID)
		}
		delete(st.lots, stockID)
		return nil
	})
}

func (r *StockRepo) HasConsumption(ctx context.Context, stockID int64) (bool, error) {
	var used bool
	err := r.s.do(ctx, func(st *state) error {
		used = st.lotReferenced(stockID)
		return nil
	})
	return used, err
}

func (r *StockRepo) CreateReleases(ctx context.Context, releases []*stock.Release) error {
	return r.s.do(ctx, func(st *state) error {
		for _, rel := range releases {
			if _, ok := st.lots[rel.StockID]; !ok {
				return apperror.NewConflict("release references a missing stock lot").
					WithDetail("stockId", rel.StockID)
			}
			st.nextRelease++
			rel.ReleaseID = st.nextRelease
			rel.CreatedAt = r.s.now()
			st.releases[rel.ReleaseID] = *rel
		}
		return nil
	})
}

func (r *StockRepo) ListReleases(ctx context.Context, itemID int64, limit int) ([]*stock.Release, error) {
	out := make([]*stock.Release, 0)
	err := r.s.do(ctx, func(st *state) error {
		for _, rel := range st.releases {
			if rel.ItemID == itemID {
				found := rel
				out = append(out, &found)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].ReleaseDate.Equal(out[j].ReleaseDate) {
				return out[i].ReleaseDate.After(out[j].ReleaseDate)
			}
			return out[i].ReleaseID > out[j].ReleaseID
		})
		out = page(out, limit, 0)
		return nil
	})
	return out, err
}

func (r *StockRepo) GetReleasesByBatch(ctx context.Context, batchID id.ID) ([]*stock.Release, error) {
	out := make([]*stock.Release, 0)
	err := r.s.do(ctx, func(st *state) error {
		for _, rel := range st.releases {
			if rel.BatchID == batchID {
				found := rel
				out = append(out, &found)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ReleaseID < out[j].ReleaseID })
		return nil
	})
	return out, err
}

func (r *StockRepo) DeleteReleasesByBatch(ctx context.Context, batchID id.ID) error {
	return r.s.do(ctx, func(st *state) error {
		for rid, rel := range st.releases {
			if rel.BatchID == batchID {
				delete(st.releases, rid)
			}
		}
		return nil
	})
}
