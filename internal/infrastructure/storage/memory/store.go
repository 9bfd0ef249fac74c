// Package memory provides an in-process implementation of every ledger repository.
// A single mutex serializes transactions; a failed transaction restores the snapshot
// taken when it began. It backs STORAGE=memory and the domain tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"serviceshop/internal/core/tx"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/internal/domain/registers/stock"
)

type usageKey struct {
	serviceID int64
	stockID   int64
}

type state struct {
	items     map[int64]item.Item
	lots      map[int64]stock.Lot
	purchases map[int64]purchase.Purchase
	releases  map[int64]stock.Release
	services  map[int64]service_record.ServiceRecord
	usages    map[usageKey]service_parts.Usage
	invoices  map[int64]invoice.Invoice
	audit     []audit.TrailEntry

	nextItem     int64
	nextLot      int64
	nextPurchase int64
	nextRelease  int64
	nextService  int64
}

func newState() *state {
	return &state{
		items:     make(map[int64]item.Item),
		lots:      make(map[int64]stock.Lot),
		purchases: make(map[int64]purchase.Purchase),
		releases:  make(map[int64]stock.Release),
		services:  make(map[int64]service_record.ServiceRecord),
		usages:    make(map[usageKey]service_parts.Usage),
		invoices:  make(map[int64]invoice.Invoice),
	}
}

func (st *state) clone() *state {
	c := &state{
		items:        make(map[int64]item.Item, len(st.items)),
		lots:         make(map[int64]stock.Lot, len(st.lots)),
		purchases:    make(map[int64]purchase.Purchase, len(st.purchases)),
		releases:     make(map[int64]stock.Release, len(st.releases)),
		services:     make(map[int64]service_record.ServiceRecord, len(st.services)),
		usages:       make(map[usageKey]service_parts.Usage, len(st.usages)),
		invoices:     make(map[int64]invoice.Invoice, len(st.invoices)),
		audit:        append([]audit.TrailEntry(nil), st.audit...),
		nextItem:     st.nextItem,
		nextLot:      st.nextLot,
		nextPurchase: st.nextPurchase,
		nextRelease:  st.nextRelease,
		nextService:  st.nextService,
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.lots {
		if v.PurchaseID != nil {
			pid := *v.PurchaseID
			v.PurchaseID = &pid
		}
		c.lots[k] = v
	}
	for k, v := range st.purchases {
		c.purchases[k] = v
	}
	for k, v := range st.releases {
		c.releases[k] = v
	}
	for k, v := range st.services {
		c.services[k] = v
	}
	for k, v := range st.usages {
		c.usages[k] = v
	}
	for k, v := range st.invoices {
		v.Lines = slices.Clone(v.Lines)
		c.invoices[k] = v
	}
	return c
}

type failure struct {
	remaining int
	err       error
}

// Store holds all ledger state.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[int64]*failure
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		st:       newState(),
		failures: make(map[int64]*failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{ s *Store }

// RunInTransaction executes fn holding the store lock.
// Nested calls reuse the outer transaction; an error restores the state fn started from.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	txCtx := tx.MarkActive(context.WithValue(ctx, txKey{s}, true))
	if err := fn(txCtx); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ReadOnly executes fn like RunInTransaction.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

func (s *Store) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{s}).(bool)
	return v
}

// do runs fn against the state, locking only outside a transaction.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// FailDecrement makes the next times decrements of a lot fail with err.
// A negative times fails every decrement until ClearFailures.
func (s *Store) FailDecrement(stockID int64, times int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[stockID] = &failure{remaining: times, err: err}
}

// ClearFailures removes every injected failure.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[int64]*failure)
}

func (s *Store) injected(stockID int64) error {
	f, ok := s.failures[stockID]
	if !ok || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.err
}

// Ping implements the readiness check.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Items returns the item repository.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s} }

// Stock returns the stock lot repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

// Purchases returns the purchase repository.
func (s *Store) Purchases() *PurchaseRepo { return &PurchaseRepo{s: s} }

// ServiceRecords returns the service record repository.
func (s *Store) ServiceRecords() *ServiceRecordRepo { return &ServiceRecordRepo{s: s} }

// ServiceParts returns the service part usage repository.
func (s *Store) ServiceParts() *ServicePartsRepo { return &ServicePartsRepo{s: s} }

// Invoices returns the invoice repository.
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s: s} }

// Auditor returns the audit recorder.
func (s *Store) Auditor() *Auditor { return &Auditor{s: s} }
