package entity

// Client is one buyer or seller party on a transaction.
type Client struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	MaritalStatus string `json:"maritalStatus"`
}

// Transaction is the typed intake schema for a cover-sheet generation.
// It replaces ad-hoc optional-chaining over a loose payload: every consumer
// reads from this struct, and a single mapping step turns it into the
// template context with documented defaults.
type Transaction struct {
	RecordID string `json:"recordId"`

	// Agent
	AgentRole  string `json:"agentRole"`
	AgentName  string `json:"agentName"`
	AgentEmail string `json:"agentEmail"`

	// Property
	PropertyAddress string  `json:"propertyAddress"`
	MLSNumber       string  `json:"mlsNumber"`
	SalePrice       float64 `json:"salePrice"`
	ClosingDate     string  `json:"closingDate"`
	Municipality    string  `json:"municipality"`
	HOAName         string  `json:"hoaName"`

	// Parties
	Clients []Client `json:"clients"`

	// Commission
	TotalCommissionPct  float64 `json:"totalCommissionPct"`
	ListingAgentPct     float64 `json:"listingAgentPct"`
	BuyersAgentPct      float64 `json:"buyersAgentPct"`
	HasSellersAssist    bool    `json:"hasSellersAssist"`
	SellersAssist       float64 `json:"sellersAssist"`
	SellerPaidCommision bool    `json:"sellerPaid"`

	// Referral
	IsReferral    bool    `json:"isReferral"`
	ReferralParty string  `json:"referralParty"`
	ReferralFee   float64 `json:"referralFee"`

	// Settlement
	TitleCompany string `json:"titleCompany"`
	SaleType     string `json:"saleType"` // STANDARD or REFERRAL

	// Coordination
	UpdateMLS           bool   `json:"updateMls"`
	SpecialInstructions string `json:"specialInstructions"`
	UrgentIssues        string `json:"urgentIssues"`
	Notes               string `json:"notes"`
}
