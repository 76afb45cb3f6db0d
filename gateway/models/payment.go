package models

// GatewayAccount is the per-merchant configuration set through the host admin
// form. TransactionKey is a secret and must never appear in logs or responses.
type GatewayAccount struct {
	APILoginID      string
	TransactionKey  string
	PublicClientKey string
	Environment     string
}

// Enabled reports whether the account carries everything required to take
// payments. The admin form enforces the same rule before the gateway can be
// switched on.
func (a GatewayAccount) Enabled() bool {
	return a.APILoginID != "" && a.TransactionKey != "" && a.PublicClientKey != ""
}

// Payable describes what is being purchased. The amount is final: minor units,
// surcharge-inclusive and currency-rounded, computed by the host.
type Payable struct {
	AccountID string
	Amount    int64
	Currency  string
}

// PaymentRecord is the host-side payment row written once per successful
// charge.
type PaymentRecord struct {
	ID          string
	AccountID   string
	Component   string
	PaymentArea string
	ItemID      int64
	UserID      string
	Amount      int64
	Currency    string
	Gateway     string
}

// LedgerRecord links a host payment id to the processor-assigned transaction
// id. Written once, after an approved charge, and keyed by transaction id so a
// replayed commit cannot double-record.
type LedgerRecord struct {
	PaymentID     string `json:"paymentid"`
	TransactionID string `json:"transactionid"`
}

// ProcessResult is the outcome handed back to the paying client.
type ProcessResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClientConfig is the non-secret subset of the account needed by the
// browser-side tokenization widget.
type ClientConfig struct {
	APILoginID      string `json:"apiloginid"`
	PublicClientKey string `json:"publicclientkey"`
	Environment     string `json:"environment"`
}

// MerchantCurrency is the result of the pre-flight currency lookup.
type MerchantCurrency struct {
	Success  bool   `json:"success"`
	Currency string `json:"currency"`
	Message  string `json:"message"`
}
