package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Discount is a percentage reduction, optionally bounded to [StartsAt, EndsAt).
type Discount struct {
	Percent  decimal.Decimal `json:"percent"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
	EndsAt   *time.Time      `json:"ends_at,omitempty"`
}

// ActiveAt reports whether the discount applies at the given instant.
func (d *Discount) ActiveAt(at time.Time) bool {
	if d == nil || !d.Percent.IsPositive() {
		return false
	}
	if d.StartsAt != nil && at.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && !at.Before(*d.EndsAt) {
		return false
	}
	return true
}

// Product represents a catalog product and its stock position
type Product struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Category          string          `json:"category" db:"category"`
	CostPrice         decimal.Decimal `json:"cost_price" db:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price" db:"selling_price"`
	CurrentStock      int             `json:"current_stock" db:"current_stock"`
	SafetyStock       int             `json:"safety_stock" db:"safety_stock"`
	FestivalDiscount  *Discount       `json:"festival_discount,omitempty"`
	FlashSaleDiscount *Discount       `json:"flash_sale_discount,omitempty"`
	SupplierID        *uuid.UUID      `json:"supplier_id,omitempty" db:"supplier_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// SuppliedBy reports whether the product is currently sourced from the supplier.
func (p *Product) SuppliedBy(supplierID uuid.UUID) bool {
	return p.SupplierID != nil && *p.SupplierID == supplierID
}

type SupplierStatus string

const (
	SupplierActive   SupplierStatus = "active"
	SupplierInactive SupplierStatus = "inactive"
)

// Supplier represents a vendor that purchase orders are placed with
type Supplier struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	FullName    string         `json:"full_name" db:"full_name"`
	Email       string         `json:"email" db:"email"`
	Phone       string         `json:"phone" db:"phone"`
	CompanyName string         `json:"company_name" db:"company_name"`
	Address     string         `json:"address" db:"address"`
	Status      SupplierStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
