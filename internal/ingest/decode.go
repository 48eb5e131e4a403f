package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/salestream/internal/sales/domain"
)

// Source feed columns. The header row names columns; order in the file does
// not matter. Customer Address may contain the delimiter and arrives quoted.
const (
	colOrderID         = "Order ID"
	colProductID       = "Product ID"
	colCustomerID      = "Customer ID"
	colProductName     = "Product Name"
	colCategory        = "Category"
	colRegion          = "Region"
	colDateOfSale      = "Date of Sale"
	colQuantity        = "Quantity Sold"
	colUnitPrice       = "Unit Price"
	colDiscount        = "Discount"
	colShippingCost    = "Shipping Cost"
	colPaymentMethod   = "Payment Method"
	colCustomerName    = "Customer Name"
	colCustomerEmail   = "Customer Email"
	colCustomerAddress = "Customer Address"
)

var requiredColumns = []string{
	colOrderID, colProductID, colCustomerID, colProductName, colCategory,
	colRegion, colDateOfSale, colQuantity, colUnitPrice, colDiscount,
	colShippingCost, colPaymentMethod, colCustomerName, colCustomerEmail,
	colCustomerAddress,
}

// Record is one decoded line item with all inline entity fields typed.
type Record struct {
	OrderID           string
	ProductID         string
	CustomerID        string
	ProductName       string
	Category          string
	Region            string
	OrderDate         time.Time
	Quantity          int64
	UnitPriceCents    int64
	DiscountBps       int64
	ShippingCostCents int64
	PaymentMethod     string
	CustomerName      string
	CustomerEmail     string
	CustomerAddress   string
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return idx, nil
}

func (idx columnIndex) get(fields []string, name string) string {
	return strings.TrimSpace(fields[idx[name]])
}

// decodeRecord turns one raw CSV row into a Record. A missing required
// identifier or an unparsable value is a decode failure for the whole run,
// never a silent skip.
func decodeRecord(fields []string, idx columnIndex, line int) (Record, error) {
	fail := func(field string, err error) (Record, error) {
		return Record{}, &DecodeError{Line: line, Field: field, Err: err}
	}

	rec := Record{
		OrderID:         idx.get(fields, colOrderID),
		ProductID:       idx.get(fields, colProductID),
		CustomerID:      idx.get(fields, colCustomerID),
		ProductName:     idx.get(fields, colProductName),
		Category:        idx.get(fields, colCategory),
		Region:          idx.get(fields, colRegion),
		PaymentMethod:   idx.get(fields, colPaymentMethod),
		CustomerName:    idx.get(fields, colCustomerName),
		CustomerEmail:   idx.get(fields, colCustomerEmail),
		CustomerAddress: idx.get(fields, colCustomerAddress),
	}

	if rec.OrderID == "" {
		return fail(colOrderID, errors.New("required value is empty"))
	}
	if rec.ProductID == "" {
		return fail(colProductID, errors.New("required value is empty"))
	}
	if rec.CustomerID == "" {
		return fail(colCustomerID, errors.New("required value is empty"))
	}

	orderDate, err := time.Parse("2006-01-02", idx.get(fields, colDateOfSale))
	if err != nil {
		return fail(colDateOfSale, err)
	}
	rec.OrderDate = orderDate.UTC()

	rec.Quantity, err = strconv.ParseInt(idx.get(fields, colQuantity), 10, 64)
	if err != nil {
		return fail(colQuantity, err)
	}
	if rec.Quantity <= 0 {
		return fail(colQuantity, fmt.Errorf("quantity %d is not positive", rec.Quantity))
	}

	rec.UnitPriceCents, err = parseCents(idx.get(fields, colUnitPrice))
	if err != nil {
		return fail(colUnitPrice, err)
	}
	rec.ShippingCostCents, err = parseCents(idx.get(fields, colShippingCost))
	if err != nil {
		return fail(colShippingCost, err)
	}
	rec.DiscountBps, err = parseBps(idx.get(fields, colDiscount))
	if err != nil {
		return fail(colDiscount, err)
	}

	return rec, nil
}

// parseCents reads a non-negative decimal currency value with up to two
// fractional digits into cents, without going through floating point.
func parseCents(s string) (int64, error) {
	return parseFixed(s, 2)
}

// parseBps reads a discount fraction in [0,1] into basis points.
func parseBps(s string) (int64, error) {
	bps, err := parseFixed(s, 4)
	if err != nil {
		return 0, err
	}
	if bps > domain.BpsDenominator {
		return 0, fmt.Errorf("discount %s exceeds 1", s)
	}
	return bps, nil
}

func parseFixed(s string, digits int) (int64, error) {
	if s == "" {
		return 0, errors.New("required value is empty")
	}
	// The sign must be checked on the raw input: "-0.50" splits into a
	// whole part of "-0", which parses to zero and loses the sign.
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative value %q", s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > digits {
		return 0, fmt.Errorf("more than %d fractional digits in %q", digits, s)
	}
	for len(frac) < digits {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	scale := int64(1)
	for i := 0; i < digits; i++ {
		scale *= 10
	}
	return w*scale + f, nil
}
