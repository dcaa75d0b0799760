package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/shared"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByIDForTenant finds a customer by ID within a tenant
func (r *GormCustomerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	var customer partner.Customer
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByIDForUpdate loads the customer with a row lock so the cached
// aggregates can be rewritten inside the active transaction
func (r *GormCustomerRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	var customer partner.Customer
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return dbFromContext(ctx, r.db).Save(customer).Error
}

// Ensure GormCustomerRepository implements partner.CustomerRepository
var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// GormSalesPersonRepository implements partner.SalesPersonRepository using GORM
type GormSalesPersonRepository struct {
	db *gorm.DB
}

// NewGormSalesPersonRepository creates a new GormSalesPersonRepository
func NewGormSalesPersonRepository(db *gorm.DB) *GormSalesPersonRepository {
	return &GormSalesPersonRepository{db: db}
}

// FindByIDForTenant finds a sales person by ID within a tenant
func (r *GormSalesPersonRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.SalesPerson, error) {
	var sp partner.SalesPerson
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// Save creates or updates a sales person
func (r *GormSalesPersonRepository) Save(ctx context.Context, sp *partner.SalesPerson) error {
	return dbFromContext(ctx, r.db).Save(sp).Error
}

// Ensure GormSalesPersonRepository implements partner.SalesPersonRepository
var _ partner.SalesPersonRepository = (*GormSalesPersonRepository)(nil)

// GormWarehouseRepository implements partner.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByIDForTenant finds a warehouse by ID within a tenant
func (r *GormWarehouseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Warehouse, error) {
	var warehouse partner.Warehouse
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &warehouse, nil
}

// FindByNameForTenant finds a warehouse by its unique name within a tenant
func (r *GormWarehouseRepository) FindByNameForTenant(ctx context.Context, tenantID uuid.UUID, name string) (*partner.Warehouse, error) {
	var warehouse partner.Warehouse
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &warehouse, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *partner.Warehouse) error {
	return dbFromContext(ctx, r.db).Save(warehouse).Error
}

// Ensure GormWarehouseRepository implements partner.WarehouseRepository
var _ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
