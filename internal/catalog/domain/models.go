package domain

import (
	"github.com/bwmarrin/snowflake"
)

// Region, Category and PaymentMethod are the low-cardinality lookup
// entities of the sales schema. Rows are created lazily on first sight of a
// name and never deleted by ingestion.

type Region struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"not null;uniqueIndex" json:"name"`
}

func (Region) TableName() string { return "regions" }

type Category struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"not null;uniqueIndex" json:"name"`
}

func (Category) TableName() string { return "categories" }

type PaymentMethod struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"not null;uniqueIndex" json:"name"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
