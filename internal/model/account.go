package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a bank account that entries can be paid from or into.
type Account struct {
	OpeningDate    time.Time
	CreatedAt      time.Time
	OpeningBalance decimal.Decimal
	BankName       string
	Branch         string
	Number         string
	ID             int64
}

// Card is a credit card with a monthly invoice cycle.
type Card struct {
	CreatedAt        time.Time
	Limit            decimal.Decimal
	PaymentAccountID *int64
	Name             string
	ID               int64
	ClosingDay       int
	DueDay           int
}
