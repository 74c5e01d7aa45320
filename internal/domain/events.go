package domain

// Event names published to the notification sink after a successful commit.
// Emission is best effort and at most once; delivery is owned by the sink.
const (
	EventStockUpdate        = "stockUpdate"
	EventReservationCreated = "reservationCreated"
	EventReservationExpired = "reservationExpired"
	EventPurchaseCompleted  = "purchaseCompleted"
)

type StockUpdate struct {
	ItemID   string `json:"itemId"`
	NewStock int    `json:"newStock"`
}

type ReservationCreated struct {
	HoldID   string `json:"holdId"`
	ItemID   string `json:"itemId"`
	HolderID string `json:"holderId"`
}

type ReservationExpired struct {
	ItemID        string `json:"itemId"`
	StockReturned int    `json:"stockReturned"`
}

type PurchaseCompleted struct {
	ItemID   string `json:"itemId"`
	SaleID   string `json:"saleId"`
	HolderID string `json:"holderId"`
}
