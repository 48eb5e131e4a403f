package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BpsDenominator is the fixed denominator for discount fractions. A
// discount of 0.10 is stored as 1000 basis points.
const BpsDenominator = 10000

// Customer is keyed by the external id carried in the source feed. Repeated
// sightings of the same id overwrite name/email/address; rows are never
// versioned.
type Customer struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Address   string    `gorm:"not null" json:"address"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

type Product struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	CategoryID snowflake.ID `gorm:"not null;index" json:"category_id"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type Order struct {
	ID                string       `gorm:"primaryKey" json:"id"`
	CustomerID        string       `gorm:"not null;index" json:"customer_id"`
	RegionID          snowflake.ID `gorm:"not null;index" json:"region_id"`
	PaymentMethodID   snowflake.ID `gorm:"not null;index" json:"payment_method_id"`
	OrderDate         time.Time    `gorm:"not null" json:"order_date"`
	ShippingCostCents int64        `gorm:"not null" json:"shipping_cost_cents"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem has no natural unique key in the source feed. Ingestion keeps
// line items idempotent by replacing the full set for an order whenever
// that order reappears in a run.
type OrderItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID        string       `gorm:"not null;index" json:"order_id"`
	ProductID      string       `gorm:"not null;index" json:"product_id"`
	Quantity       int64        `gorm:"not null" json:"quantity"`
	UnitPriceCents int64        `gorm:"not null" json:"unit_price_cents"`
	DiscountBps    int64        `gorm:"not null" json:"discount_bps"`
}

func (OrderItem) TableName() string { return "order_items" }

// RevenueCents is the line's revenue contribution:
// unit price x quantity x (1 - discount).
func (i OrderItem) RevenueCents() int64 {
	return i.UnitPriceCents * i.Quantity * (BpsDenominator - i.DiscountBps) / BpsDenominator
}
