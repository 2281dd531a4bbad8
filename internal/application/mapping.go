package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
	"github.com/haydnphilipdesign/coversheet-service/pkg/template"
)

// notProvided is the display default for optional free-text fields.
const notProvided = "N/A"

// BuildContext turns a typed transaction into the flat placeholder context
// the cover-sheet templates consume. This is the single place where field
// defaults and display formatting (currency, percentages, dates) live.
func BuildContext(tx *entity.Transaction, sel template.Selection, now time.Time) template.Context {
	ctx := template.Context{
		"agentRole":       string(sel.Role),
		"agentName":       orDefault(tx.AgentName, notProvided),
		"agentEmail":      tx.AgentEmail,
		"propertyAddress": orDefault(tx.PropertyAddress, notProvided),
		"mlsNumber":       orDefault(tx.MLSNumber, notProvided),
		"salePrice":       formatCurrency(tx.SalePrice),
		"closingDate":     orDefault(tx.ClosingDate, notProvided),
		"municipality":    orDefault(tx.Municipality, notProvided),
		"hoaName":         orDefault(tx.HOAName, notProvided),

		"totalCommissionPct": formatPercent(tx.TotalCommissionPct),
		"listingAgentPct":    formatPercent(tx.ListingAgentPct),
		"buyersAgentPct":     formatPercent(tx.BuyersAgentPct),
		"hasSellersAssist":   tx.HasSellersAssist,
		"sellersAssist":      formatCurrency(tx.SellersAssist),
		"sellerPaid":         tx.SellerPaidCommision,

		"isReferral":    tx.IsReferral,
		"referralParty": orDefault(tx.ReferralParty, notProvided),
		"referralFee":   formatCurrency(tx.ReferralFee),

		"titleCompany": orDefault(tx.TitleCompany, notProvided),
		"saleType":     orDefault(strings.ToUpper(tx.SaleType), "STANDARD"),
		"updateMls":    tx.UpdateMLS,

		"specialInstructions": orDefault(tx.SpecialInstructions, notProvided),
		"urgentIssues":        orDefault(tx.UrgentIssues, notProvided),
		"notes":               orDefault(tx.Notes, notProvided),

		"generatedDate": now.UTC().Format("January 2, 2006"),
	}

	names := make([]string, 0, len(tx.Clients))
	for i, cl := range tx.Clients {
		names = append(names, cl.Name)
		n := strconv.Itoa(i + 1)
		ctx["client"+n+"Name"] = cl.Name
		ctx["client"+n+"Email"] = orDefault(cl.Email, notProvided)
		ctx["client"+n+"Phone"] = orDefault(cl.Phone, notProvided)
		ctx["client"+n+"Address"] = orDefault(cl.Address, notProvided)
		ctx["client"+n+"MaritalStatus"] = orDefault(cl.MaritalStatus, notProvided)
	}
	ctx["clientNames"] = orDefault(strings.Join(names, " & "), notProvided)
	ctx["hasClients"] = len(tx.Clients) > 0

	return ctx
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// formatCurrency renders 425000 as "$425,000.00". Zero renders as "N/A"
// because an absent price and a zero price are indistinguishable upstream.
func formatCurrency(v float64) string {
	if v == 0 {
		return notProvided
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	whole, frac := parts[0], parts[1]

	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, b.String(), frac)
}

// formatPercent renders 2.5 as "2.5%" and 3 as "3%".
func formatPercent(v float64) string {
	if v == 0 {
		return notProvided
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s + "%"
}
