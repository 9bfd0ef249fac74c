package memory

import (
	"context"
	"sort"
	"strings"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/catalogs/item"
)

var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo implements item.Repository.
type ItemRepo struct{ s *Store }

func (st *state) itemNameTaken(name, brand string, exceptID int64) bool {
	for _, it := range st.items {
		if it.ItemID != exceptID && strings.EqualFold(it.Name, name) && strings.EqualFold(it.Brand, brand) {
			return true
		}
	}
	return false
}

func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.s.do(ctx, func(st *state) error {
		if st.itemNameTaken(it.Name, it.Brand, 0) {
			return apperror.NewDuplicate(apperror.EntityItem, "name", it.Name)
		}
		st.nextItem++
		it.ItemID = st.nextItem
		it.CreatedAt = r.s.now()
		it.UpdatedAt = it.CreatedAt
		st.items[it.ItemID] = *it
		return nil
	})
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID int64) (*item.Item, error) {
	var out *item.Item
	err := r.s.do(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityItem, itemID)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *ItemRepo) FindByNameBrand(ctx context.Context, name, brand string) (*item.Item, error) {
	var out *item.Item
	err := r.s.do(ctx, func(st *state) error {
		for _, it := range st.items {
			if strings.EqualFold(it.Name, name) && strings.EqualFold(it.Brand, brand) {
				found := it
				out = &found
				return nil
			}
		}
		return apperror.NewNotFound(apperror.EntityItem, name)
	})
	return out, err
}

func (r *ItemRepo) Update(ctx context.Context, it *item.Item) error {
	return r.s.do(ctx, func(st *state) error {
		current, ok := st.items[it.ItemID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityItem, it.ItemID)
		}
		if st.itemNameTaken(it.Name, it.Brand, it.ItemID) {
			return apperror.NewDuplicate(apperror.EntityItem, "name", it.Name)
		}
		it.CreatedAt = current.CreatedAt
		it.UpdatedAt = r.s.now()
		st.items[it.ItemID] = *it
		return nil
	})
}

func (r *ItemRepo) Delete(ctx context.Context, itemID int64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[itemID]; !ok {
			return apperror.NewNotFound(apperror.EntityItem, itemID)
		}
		if st.itemReferences(itemID) > 0 {
			return apperror.NewConflict("item is still referenced")
		}
		delete(st.items, itemID)
		return nil
	})
}

func (r *ItemRepo) List(ctx context.Context, filter item.Filter) (domain.ListResult[*item.Item], error) {
	res := domain.ListResult[*item.Item]{Limit: filter.Limit, Offset: filter.Offset}
	err := r.s.do(ctx, func(st *state) error {
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		matched := make([]*item.Item, 0)
		for _, it := range st.items {
			if filter.Category != "" && !strings.EqualFold(it.Category, filter.Category) {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(it.Name), search) &&
				!strings.Contains(strings.ToLower(it.Brand), search) &&
				!strings.Contains(strings.ToLower(it.Description), search) {
				continue
			}
			found := it
			matched = append(matched, &found)
		}
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].Name != matched[j].Name {
				return matched[i].Name < matched[j].Name
			}
			return matched[i].ItemID < matched[j].ItemID
		})

		res.TotalCount = int64(len(matched))
		res.Items = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return res, err
}

func (r *ItemRepo) Exists(ctx context.Context, itemID int64) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		_, ok = st.items[itemID]
		return nil
	})
	return ok, err
}

func (st *state) itemReferences(itemID int64) int64 {
	var n int64
	for _, l := range st.lots {
		if l.ItemID == itemID {
			n++
		}
	}
	for _, p := range st.purchases {
		if p.ItemID == itemID {
			n++
		}
	}
	return n
}

func (r *ItemRepo) CountReferences(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		n = st.itemReferences(itemID)
		return nil
	})
	return n, err
}

func (r *ItemRepo) ListWithAvailability(ctx context.Context) ([]*item.WithAvailability, error) {
	out := make([]*item.WithAvailability, 0)
	err := r.s.do(ctx, func(st *state) error {
		totals := make(map[int64]int64)
		for _, l := range st.lots {
			totals[l.ItemID] += l.AvailableQty
		}
		for _, it := range st.items {
			out = append(out, &item.WithAvailability{Item: it, Available: totals[it.ItemID]})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
		return nil
	})
	return out, err
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
