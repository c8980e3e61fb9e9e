package sales

import "time"

// Sale represents a sold item as stored in the transactions collection.
// Purchase prices are in PLN, sale prices and profit in CZK.
type Sale struct {
	ID               string     `json:"id" firestore:"-"`
	ItemName         string     `json:"itemName" firestore:"itemName"`
	Brand            string     `json:"brand" firestore:"brand"`
	Model            string     `json:"model" firestore:"model"`
	Note             string     `json:"note" firestore:"note"`
	Seller           string     `json:"seller" firestore:"seller"`
	Supplier         string     `json:"supplier" firestore:"supplier"`
	PurchasePricePLN float64    `json:"purchasePricePln" firestore:"purchasePricePln"`
	SalePriceCZK     float64    `json:"salePriceCzk" firestore:"salePriceCzk"`
	NetProfitCZK     *float64   `json:"netProfitCzk,omitempty" firestore:"netProfitCzk"`
	SaleDate         string     `json:"saleDate,omitempty" firestore:"saleDate"`
	CreatedAt        *time.Time `json:"createdAt,omitempty" firestore:"createdAt"`
	CustomerName     string     `json:"customerName" firestore:"customerName"`
	CustomerAddress  string     `json:"customerAddress" firestore:"customerAddress"`
	Phone1           string     `json:"phone1" firestore:"phone1"`
	Phone2           string     `json:"phone2" firestore:"phone2"`
	DeliveryCity     string     `json:"deliveryCity" firestore:"deliveryCity"`
}

// Return is a sold item pending return. Its ID equals the ID of the sale it
// was created from.
type Return struct {
	ID              string     `json:"id" firestore:"-"`
	ItemName        string     `json:"itemName" firestore:"itemName"`
	Note            string     `json:"note" firestore:"note"`
	Seller          string     `json:"seller" firestore:"seller"`
	SalePriceCZK    float64    `json:"salePriceCzk" firestore:"salePriceCzk"`
	DeliveryCity    string     `json:"deliveryCity" firestore:"deliveryCity"`
	CustomerAddress string     `json:"customerAddress" firestore:"customerAddress"`
	Phone1          string     `json:"phone1" firestore:"phone1"`
	Phone2          string     `json:"phone2" firestore:"phone2"`
	DepositCZK      float64    `json:"depositCzk" firestore:"depositCzk"`
	Returned        bool       `json:"returned" firestore:"returned"`
	ReturnedAt      *time.Time `json:"returnedAt,omitempty" firestore:"returnedAt"`
	CreatedAt       *time.Time `json:"createdAt,omitempty" firestore:"createdAt"`
}

// HistoryEntry is one line of the append-only activity log.
type HistoryEntry struct {
	ID        string    `json:"id" firestore:"-"`
	Action    string    `json:"action" firestore:"action"`
	DocID     string    `json:"docId" firestore:"docId"`
	Details   string    `json:"details" firestore:"details"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// ActionReturnAdded is logged when a sale is marked for return.
const ActionReturnAdded = "return_added"

// DefaultExchangeRate converts PLN to CZK when no setting is stored.
const DefaultExchangeRate = 5.8

// Amount is a money value that was either stored on the record or derived
// from other fields.
type Amount struct {
	Value  float64 `json:"value"`
	Stored bool    `json:"stored"`
}

// Profit resolves the net profit of the sale in CZK. A stored value wins over
// sale price minus converted purchase price.
func (s *Sale) Profit(rate float64) Amount {
	if s.NetProfitCZK != nil {
		return Amount{Value: *s.NetProfitCZK, Stored: true}
	}
	return Amount{Value: s.SalePriceCZK - s.PurchasePricePLN*rate}
}
