// Package app assembles domain services over a storage backend.
package app

import (
	"context"
	"fmt"

	"serviceshop/internal/config"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/storage/memory"
	"serviceshop/internal/infrastructure/storage/postgres"
	"serviceshop/internal/infrastructure/storage/postgres/catalog_repo"
	"serviceshop/internal/infrastructure/storage/postgres/document_repo"
	"serviceshop/internal/infrastructure/storage/postgres/register_repo"
)

// Repositories is one storage backend.
type Repositories struct {
	TxManager      tx.Manager
	Items          item.Repository
	Stock          stock.Repository
	Purchases      purchase.Repository
	ServiceRecords service_record.Repository
	ServiceParts   service_parts.Repository
	Invoices       invoice.Repository
	Audit          audit.Recorder
	History        audit.History

	// Ping checks backend readiness.
	Ping func(ctx context.Context) error
	// Stats reports pool statistics; nil for backends without a pool.
	Stats func() any
	// Name identifies the backend in health output.
	Name string
}

// MemoryRepositories wires the in-memory store.
func MemoryRepositories(store *memory.Store) Repositories {
	auditor := store.Auditor()
	return Repositories{
		TxManager:      store,
		Items:          store.Items(),
		Stock:          store.Stock(),
		Purchases:      store.Purchases(),
		ServiceRecords: store.ServiceRecords(),
		ServiceParts:   store.ServiceParts(),
		Invoices:       store.Invoices(),
		Audit:          auditor,
		History:        auditor,
		Ping:           store.Ping,
		Name:           config.StorageMemory,
	}
}

// PoolConfig derives the connection pool settings from cfg.
func PoolConfig(cfg config.Config) postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		pc.MaxConns = cfg.DBMaxConns
	}
	pc.MinConns = cfg.DBMinConns
	pc.LockTimeout = cfg.DBLockTimeout
	return pc
}

// PostgresRepositories wires the PostgreSQL repositories over one pool.
func PostgresRepositories(pool *postgres.Pool, cfg config.Config) (Repositories, error) {
	txm := postgres.NewTxManager(pool, cfg.DBStatementTimeout)
	auditService, err := postgres.NewAuditService(txm, cfg.AuditCompressThreshold)
	if err != nil {
		return Repositories{}, fmt.Errorf("audit service: %w", err)
	}

	return Repositories{
		TxManager:      txm,
		Items:          catalog_repo.NewItemRepo(txm),
		Stock:          register_repo.NewStockRepo(txm),
		Purchases:      document_repo.NewPurchaseRepo(txm),
		ServiceRecords: document_repo.NewServiceRecordRepo(txm),
		ServiceParts:   register_repo.NewServicePartsRepo(txm),
		Invoices:       document_repo.NewInvoiceRepo(txm),
		Audit:          auditService,
		History:        auditService,
		Ping:           pool.Ping,
		Stats:          func() any { return pool.Stats() },
		Name:           config.StoragePostgres,
	}, nil
}

// Services holds every domain service.
type Services struct {
	Items          *item.Service
	RestockPolicy  *item.RestockPolicy
	Stock          *stock.Service
	Purchases      *purchase.Service
	ServiceParts   *service_parts.Service
	ServiceRecords *service_record.Service
	Invoices       *invoice.Service
	History        audit.History
}

// NewServices builds the domain services over repos.
func NewServices(repos Repositories, cfg config.Config) (*Services, error) {
	policy, err := item.NewRestockPolicy(cfg.RestockRule)
	if err != nil {
		return nil, fmt.Errorf("restock policy: %w", err)
	}

	parts := service_parts.NewService(
		repos.ServiceParts, repos.Stock, repos.ServiceRecords, repos.TxManager, repos.Audit, cfg.ConflictRetries,
	)

	return &Services{
		Items:          item.NewService(repos.Items, repos.TxManager, policy),
		RestockPolicy:  policy,
		Stock:          stock.NewService(repos.Stock, repos.Items, repos.TxManager, repos.Audit, cfg.ConflictRetries),
		Purchases:      purchase.NewService(repos.Purchases, repos.Stock, repos.Items, repos.TxManager, repos.Audit),
		ServiceParts:   parts,
		ServiceRecords: service_record.NewService(repos.ServiceRecords, parts, repos.TxManager, repos.Audit),
		Invoices: invoice.NewService(
			repos.Invoices, repos.ServiceParts, repos.ServiceRecords, repos.TxManager, repos.Audit,
		),
		History: repos.History,
	}, nil
}
