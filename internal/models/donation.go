package models

import "time"

type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
	DonationStatusRefunded  DonationStatus = "refunded"
)

func (s DonationStatus) Valid() bool {
	switch s {
	case DonationStatusPending, DonationStatusCompleted, DonationStatusFailed, DonationStatusRefunded:
		return true
	}
	return false
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCAD, CurrencyAUD:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodPaypal   PaymentMethod = "paypal"
	PaymentMethodBank     PaymentMethod = "bank_transfer"
	PaymentMethodCrypto   PaymentMethod = "crypto"
	PaymentMethodOther    PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPaypal, PaymentMethodBank, PaymentMethodCrypto, PaymentMethodOther:
		return true
	}
	return false
}

type Donation struct {
	ID            string
	DonorName     string
	DonorEmail    string
	Amount        float64
	Currency      Currency
	Message       *string
	IsAnonymous   bool
	TransactionID *string
	Status        DonationStatus
	PaymentMethod PaymentMethod
	IPAddress     string
	UserAgent     string
	ProcessedAt   *time.Time
	RefundedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
