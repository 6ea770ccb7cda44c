package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// CustomerRepo is the persistence surface for customers.
type CustomerRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Customer) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Customer) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Customer], error)
}

// SupplierRepo is the persistence surface for suppliers.
type SupplierRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Supplier) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Supplier) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Supplier], error)
}

// PartnerInput carries the fields accepted for a customer or supplier.
type PartnerInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxID         string `json:"tax_id"`
	ContactPerson string `json:"contact_person"`
	Notes         string `json:"notes"`
}

// CustomerService implements customer operations.
type CustomerService struct {
	customers CustomerRepo
}

// NewCustomerService creates a new customer service.
func NewCustomerService(customers CustomerRepo) *CustomerService {
	return &CustomerService{customers: customers}
}

// List returns one page of the organization's customers, optionally
// filtered by a name or email search.
func (s *CustomerService) List(ctx context.Context, orgID uuid.UUID, page, pageSize int, search string) (*repository.Page[models.Customer], error) {
	if search != "" {
		pattern := "%" + search + "%"
		return s.customers.GetPaged(ctx, orgID, page, pageSize, "name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	return s.customers.GetPaged(ctx, orgID, page, pageSize, "")
}

// Get returns a single customer.
func (s *CustomerService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.customers.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, NewNotFoundError("customer")
	}
	return customer, nil
}

// Create creates a customer.
func (s *CustomerService) Create(ctx context.Context, orgID uuid.UUID, in PartnerInput) (*models.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}
	customer := &models.Customer{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
		TaxID:   in.TaxID,
		Notes:   in.Notes,
	}
	if err := s.customers.Add(ctx, orgID, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Update modifies a customer.
func (s *CustomerService) Update(ctx context.Context, orgID, id uuid.UUID, in PartnerInput) (*models.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}
	customer, err := s.customers.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, NewNotFoundError("customer")
	}

	customer.Name = in.Name
	customer.Email = in.Email
	customer.Phone = in.Phone
	customer.Address = in.Address
	customer.TaxID = in.TaxID
	customer.Notes = in.Notes

	if err := s.customers.Update(ctx, orgID, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Delete soft-deletes a customer.
func (s *CustomerService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	customer, err := s.customers.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if customer == nil {
		return NewNotFoundError("customer")
	}
	return s.customers.Delete(ctx, orgID, id)
}

// SupplierService implements supplier operations.
type SupplierService struct {
	suppliers SupplierRepo
}

// NewSupplierService creates a new supplier service.
func NewSupplierService(suppliers SupplierRepo) *SupplierService {
	return &SupplierService{suppliers: suppliers}
}

// List returns one page of the organization's suppliers, optionally
// filtered by a name or email search.
func (s *SupplierService) List(ctx context.Context, orgID uuid.UUID, page, pageSize int, search string) (*repository.Page[models.Supplier], error) {
	if search != "" {
		pattern := "%" + search + "%"
		return s.suppliers.GetPaged(ctx, orgID, page, pageSize, "name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	return s.suppliers.GetPaged(ctx, orgID, page, pageSize, "")
}

// Get returns a single supplier.
func (s *SupplierService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.suppliers.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, NewNotFoundError("supplier")
	}
	return supplier, nil
}

// Create creates a supplier.
func (s *SupplierService) Create(ctx context.Context, orgID uuid.UUID, in PartnerInput) (*models.Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}
	supplier := &models.Supplier{
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		TaxID:         in.TaxID,
		ContactPerson: in.ContactPerson,
		Notes:         in.Notes,
	}
	if err := s.suppliers.Add(ctx, orgID, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Update modifies a supplier.
func (s *SupplierService) Update(ctx context.Context, orgID, id uuid.UUID, in PartnerInput) (*models.Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}
	supplier, err := s.suppliers.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, NewNotFoundError("supplier")
	}

	supplier.Name = in.Name
	supplier.Email = in.Email
	supplier.Phone = in.Phone
	supplier.Address = in.Address
	supplier.TaxID = in.TaxID
	supplier.ContactPerson = in.ContactPerson
	supplier.Notes = in.Notes

	if err := s.suppliers.Update(ctx, orgID, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Delete soft-deletes a supplier.
func (s *SupplierService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	supplier, err := s.suppliers.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if supplier == nil {
		return NewNotFoundError("supplier")
	}
	return s.suppliers.Delete(ctx, orgID, id)
}
