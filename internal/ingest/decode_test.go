package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() []string {
	return []string{
		"Order ID", "Product ID", "Customer ID", "Product Name", "Category",
		"Region", "Date of Sale", "Quantity Sold", "Unit Price", "Discount",
		"Shipping Cost", "Payment Method", "Customer Name", "Customer Email",
		"Customer Address",
	}
}

func testRow() []string {
	return []string{
		"ORD-1", "PRD-1", "CUS-1", "Desk Lamp", "Home",
		"North", "2024-03-05", "2", "180.00", "0.10",
		"9.99", "Credit Card", "Ada Lovelace", "ada@example.com",
		"12 Analytical Way, London",
	}
}

func TestIndexHeader(t *testing.T) {
	idx, err := indexHeader(testHeader())
	require.NoError(t, err)
	assert.Equal(t, 0, idx[colOrderID])
	assert.Equal(t, 14, idx[colCustomerAddress])
}

func TestIndexHeaderMissingColumn(t *testing.T) {
	header := testHeader()[1:] // drop Order ID
	_, err := indexHeader(header)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Order ID")
}

func TestDecodeRecord(t *testing.T) {
	idx, err := indexHeader(testHeader())
	require.NoError(t, err)

	rec, err := decodeRecord(testRow(), idx, 2)
	require.NoError(t, err)

	assert.Equal(t, "ORD-1", rec.OrderID)
	assert.Equal(t, "PRD-1", rec.ProductID)
	assert.Equal(t, "CUS-1", rec.CustomerID)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), rec.OrderDate)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.Equal(t, int64(18000), rec.UnitPriceCents)
	assert.Equal(t, int64(1000), rec.DiscountBps)
	assert.Equal(t, int64(999), rec.ShippingCostCents)
	assert.Equal(t, "12 Analytical Way, London", rec.CustomerAddress)
}

func TestDecodeRecordFailures(t *testing.T) {
	idx, err := indexHeader(testHeader())
	require.NoError(t, err)

	tests := []struct {
		name  string
		col   string
		value string
		field string
	}{
		{"missing order id", colOrderID, "", colOrderID},
		{"missing product id", colProductID, "", colProductID},
		{"missing customer id", colCustomerID, "", colCustomerID},
		{"bad date", colDateOfSale, "05/03/2024", colDateOfSale},
		{"zero quantity", colQuantity, "0", colQuantity},
		{"negative quantity", colQuantity, "-1", colQuantity},
		{"bad price", colUnitPrice, "abc", colUnitPrice},
		{"discount above one", colDiscount, "1.5", colDiscount},
		{"negative price", colUnitPrice, "-3.00", colUnitPrice},
		{"negative fractional price", colUnitPrice, "-0.50", colUnitPrice},
		{"negative discount", colDiscount, "-0.25", colDiscount},
		{"price with excess precision", colUnitPrice, "180.005", colUnitPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := testRow()
			row[idx[tt.col]] = tt.value

			_, err := decodeRecord(row, idx, 7)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, 7, decodeErr.Line)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"180.00", 18000},
		{"180", 18000},
		{"0.5", 50},
		{"9.99", 999},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := parseCents(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseCents("")
	assert.Error(t, err)
	_, err = parseCents("12,50")
	assert.Error(t, err)
	// The sub-one negative range must not collapse to its absolute value.
	_, err = parseCents("-0.50")
	assert.Error(t, err)
	_, err = parseCents("180.005")
	assert.Error(t, err)
}

func TestParseBps(t *testing.T) {
	got, err := parseBps("0.10")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	got, err = parseBps("1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got)

	got, err = parseBps("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = parseBps("1.01")
	assert.Error(t, err)
	_, err = parseBps("-0.25")
	assert.Error(t, err)
}
