// Package airtable fetches transaction records from the Airtable base that
// backs the intake form, and shapes them into the typed intake schema.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mehanizm/airtable"

	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
)

var ErrRecordNotFound = errors.New("airtable: record not found")

// Client wraps the Airtable API for one base.
type Client struct {
	api    *airtable.Client
	baseID string
}

func NewClient(apiKey, baseID string) *Client {
	return &Client{api: airtable.NewClient(apiKey), baseID: baseID}
}

// FetchTransaction loads one record and maps its fields into a Transaction.
// The underlying client has no context support, so ctx is only honored
// between operations.
func (c *Client) FetchTransaction(ctx context.Context, tableID, recordID string) (*entity.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := c.api.GetTable(c.baseID, tableID)
	rec, err := table.GetRecord(recordID)
	if err != nil {
		return nil, fmt.Errorf("airtable: get record %s: %w", recordID, err)
	}
	if rec == nil || rec.Fields == nil {
		return nil, ErrRecordNotFound
	}

	return mapRecord(recordID, rec.Fields), nil
}

// mapRecord translates Airtable column names into the typed schema. Absent
// columns become zero values; the template mapping layer supplies display
// defaults later.
func mapRecord(recordID string, f map[string]any) *entity.Transaction {
	tx := &entity.Transaction{
		RecordID:            recordID,
		AgentRole:           str(f, "Agent Role"),
		AgentName:           str(f, "Agent Name"),
		AgentEmail:          str(f, "Agent Email"),
		PropertyAddress:     str(f, "Property Address"),
		MLSNumber:           str(f, "MLS Number"),
		SalePrice:           num(f, "Sale Price"),
		ClosingDate:         str(f, "Closing Date"),
		Municipality:        str(f, "Municipality"),
		HOAName:             str(f, "HOA Name"),
		TotalCommissionPct:  num(f, "Total Commission %"),
		ListingAgentPct:     num(f, "Listing Agent %"),
		BuyersAgentPct:      num(f, "Buyers Agent %"),
		HasSellersAssist:    boolean(f, "Has Sellers Assist"),
		SellersAssist:       num(f, "Sellers Assist"),
		SellerPaidCommision: boolean(f, "Seller Paid Commission"),
		IsReferral:          boolean(f, "Is Referral"),
		ReferralParty:       str(f, "Referral Party"),
		ReferralFee:         num(f, "Referral Fee"),
		TitleCompany:        str(f, "Title Company"),
		SaleType:            str(f, "Sale Type"),
		UpdateMLS:           boolean(f, "Update MLS"),
		SpecialInstructions: str(f, "Special Instructions"),
		UrgentIssues:        str(f, "Urgent Issues"),
		Notes:               str(f, "Additional Notes"),
	}

	// Client columns come flattened (Client 1 Name, Client 2 Name, ...).
	for i := 1; i <= 4; i++ {
		prefix := fmt.Sprintf("Client %d ", i)
		cl := entity.Client{
			Name:          str(f, prefix+"Name"),
			Email:         str(f, prefix+"Email"),
			Phone:         str(f, prefix+"Phone"),
			Address:       str(f, prefix+"Address"),
			MaritalStatus: str(f, prefix+"Marital Status"),
		}
		if cl.Name != "" {
			tx.Clients = append(tx.Clients, cl)
		}
	}

	return tx
}

func str(f map[string]any, key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", x))
	}
}

func num(f map[string]any, key string) float64 {
	v, ok := f[key]
	if !ok || v == nil {
		return 0
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(x))
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func boolean(f map[string]any, key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "true" || s == "yes" || s == "checked" || s == "1"
	case float64:
		return x != 0
	default:
		return false
	}
}
