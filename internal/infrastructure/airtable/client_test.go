package airtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRecord(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"Agent Role":         "LISTING AGENT",
		"Agent Name":         "Jane Doe",
		"Property Address":   "123 Main St, Pottstown, PA 19464",
		"MLS Number":         "PM-123456",
		"Sale Price":         float64(425000),
		"Closing Date":       "2026-10-01",
		"Has Sellers Assist": true,
		"Sellers Assist":     "$5,000",
		"Sale Type":          "STANDARD",
		"Client 1 Name":      "John Buyer",
		"Client 1 Email":     "john@example.com",
		"Client 2 Name":      "Mary Buyer",
	}

	tx := mapRecord("recABC123", fields)

	assert.Equal(t, "recABC123", tx.RecordID)
	assert.Equal(t, "LISTING AGENT", tx.AgentRole)
	assert.Equal(t, "Jane Doe", tx.AgentName)
	assert.Equal(t, 425000.0, tx.SalePrice)
	assert.True(t, tx.HasSellersAssist)
	assert.Equal(t, 5000.0, tx.SellersAssist)

	require.Len(t, tx.Clients, 2)
	assert.Equal(t, "John Buyer", tx.Clients[0].Name)
	assert.Equal(t, "john@example.com", tx.Clients[0].Email)
	assert.Equal(t, "Mary Buyer", tx.Clients[1].Name)
}

func TestMapRecord_MissingFieldsDegradeToZeroValues(t *testing.T) {
	t.Parallel()

	tx := mapRecord("recEmpty", map[string]any{})

	assert.Equal(t, "recEmpty", tx.RecordID)
	assert.Empty(t, tx.AgentName)
	assert.Zero(t, tx.SalePrice)
	assert.False(t, tx.HasSellersAssist)
	assert.Empty(t, tx.Clients)
}

func TestFieldCoercions(t *testing.T) {
	t.Parallel()

	f := map[string]any{
		"s":       "  padded  ",
		"n-money": "$1,234.56",
		"n-pct":   "2.5%",
		"n-bad":   "n/a",
		"b-str":   "Yes",
		"b-num":   float64(1),
	}

	assert.Equal(t, "padded", str(f, "s"))
	assert.Equal(t, "", str(f, "absent"))
	assert.Equal(t, 1234.56, num(f, "n-money"))
	assert.Equal(t, 2.5, num(f, "n-pct"))
	assert.Zero(t, num(f, "n-bad"))
	assert.True(t, boolean(f, "b-str"))
	assert.True(t, boolean(f, "b-num"))
	assert.False(t, boolean(f, "absent"))
}
