package ingest

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestream/internal/catalog"
	obsmetrics "github.com/smallbiznis/salestream/internal/observability/metrics"
	"github.com/smallbiznis/salestream/internal/sales/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Writer makes the database consistent with one window of decoded records,
// inside a single transaction. It carries the run-scoped dedup state: the
// resolver cache and the customer/product ids already written this run, so
// an entity repeated across windows is upserted only once per run.
type Writer struct {
	genID    *snowflake.Node
	log      *zap.Logger
	resolver *catalog.Resolver

	seenCustomers map[string]struct{}
	seenProducts  map[string]struct{}
}

func NewWriter(genID *snowflake.Node, resolver *catalog.Resolver, log *zap.Logger) *Writer {
	return &Writer{
		genID:         genID,
		log:           log.Named("ingest.writer"),
		resolver:      resolver,
		seenCustomers: make(map[string]struct{}),
		seenProducts:  make(map[string]struct{}),
	}
}

// WriteWindow performs all writes for a window. Any step failure rolls the
// whole window back and surfaces as a WriteError; partial writes within a
// window never persist.
func (w *Writer) WriteWindow(ctx context.Context, db *gorm.DB, windowNum int, window []Record) error {
	step := "begin"
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers, products, orders, items, touched, err := w.collect(ctx, tx, window, &step)
		if err != nil {
			return err
		}

		if len(customers) > 0 {
			step = "upsert customers"
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "email", "address", "updated_at"}),
			}).Create(&customers).Error; err != nil {
				return err
			}
		}

		if len(products) > 0 {
			step = "upsert products"
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "category_id", "updated_at"}),
			}).Create(&products).Error; err != nil {
				return err
			}
		}

		if len(orders) > 0 {
			step = "upsert orders"
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"customer_id", "region_id", "payment_method_id",
					"order_date", "shipping_cost_cents", "updated_at",
				}),
			}).Create(&orders).Error; err != nil {
				return err
			}
		}

		// Delete-then-insert keeps line items idempotent across re-runs
		// even though they have no natural key. The delete scope stays
		// minimal: only order ids touched by this window.
		step = "replace order items"
		if err := tx.Where("order_id IN ?", touched).
			Delete(&domain.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		obsmetrics.Ingest().IncWindowFailure()
		return &WriteError{Window: windowNum, Step: step, Err: err}
	}

	obsmetrics.Ingest().IncWindowCommit()
	w.log.Debug("window committed",
		zap.Int("window", windowNum),
		zap.Int("rows", len(window)),
	)
	return nil
}

// collect resolves reference names and partitions the window into the
// entity sets that still need writing this run. Within a window the last
// occurrence of a repeated entity wins, matching upsert overwrite
// semantics.
func (w *Writer) collect(ctx context.Context, tx *gorm.DB, window []Record, step *string) (
	[]domain.Customer, []domain.Product, []domain.Order, []domain.OrderItem, []string, error,
) {
	var (
		customers []domain.Customer
		products  []domain.Product
		orders    []domain.Order
		items     = make([]domain.OrderItem, 0, len(window))

		customerAt = make(map[string]int)
		productAt  = make(map[string]int)
		orderAt    = make(map[string]int)
		touchedSet = make(map[string]struct{})
		touched    []string
	)

	*step = "resolve references"
	for _, rec := range window {
		regionID, err := w.resolver.Region(ctx, tx, rec.Region)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		categoryID, err := w.resolver.Category(ctx, tx, rec.Category)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		paymentMethodID, err := w.resolver.PaymentMethod(ctx, tx, rec.PaymentMethod)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}

		if i, ok := customerAt[rec.CustomerID]; ok {
			customers[i].Name = rec.CustomerName
			customers[i].Email = rec.CustomerEmail
			customers[i].Address = rec.CustomerAddress
		} else if _, seen := w.seenCustomers[rec.CustomerID]; !seen {
			customerAt[rec.CustomerID] = len(customers)
			customers = append(customers, domain.Customer{
				ID:      rec.CustomerID,
				Name:    rec.CustomerName,
				Email:   rec.CustomerEmail,
				Address: rec.CustomerAddress,
			})
			w.seenCustomers[rec.CustomerID] = struct{}{}
		}

		if i, ok := productAt[rec.ProductID]; ok {
			products[i].Name = rec.ProductName
			products[i].CategoryID = categoryID
		} else if _, seen := w.seenProducts[rec.ProductID]; !seen {
			productAt[rec.ProductID] = len(products)
			products = append(products, domain.Product{
				ID:         rec.ProductID,
				Name:       rec.ProductName,
				CategoryID: categoryID,
			})
			w.seenProducts[rec.ProductID] = struct{}{}
		}

		order := domain.Order{
			ID:                rec.OrderID,
			CustomerID:        rec.CustomerID,
			RegionID:          regionID,
			PaymentMethodID:   paymentMethodID,
			OrderDate:         rec.OrderDate,
			ShippingCostCents: rec.ShippingCostCents,
		}
		if i, ok := orderAt[rec.OrderID]; ok {
			orders[i] = order
		} else {
			orderAt[rec.OrderID] = len(orders)
			orders = append(orders, order)
		}

		if _, ok := touchedSet[rec.OrderID]; !ok {
			touchedSet[rec.OrderID] = struct{}{}
			touched = append(touched, rec.OrderID)
		}

		items = append(items, domain.OrderItem{
			ID:             w.genID.Generate(),
			OrderID:        rec.OrderID,
			ProductID:      rec.ProductID,
			Quantity:       rec.Quantity,
			UnitPriceCents: rec.UnitPriceCents,
			DiscountBps:    rec.DiscountBps,
		})
	}

	return customers, products, orders, items, touched, nil
}
