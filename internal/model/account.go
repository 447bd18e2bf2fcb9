package model

import "github.com/shopspring/decimal"

// AccountType enumerates the kinds of account the backend accepts.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

// AccountTypes lists every valid AccountType.
var AccountTypes = []AccountType{
	AccountChecking, AccountSavings, AccountCreditCard, AccountInvestment, AccountCash,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Account is a user's financial account.
type Account struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	Name      string          `json:"account_name"`
	Type      AccountType     `json:"account_type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt Timestamp       `json:"created_at"`
	UpdatedAt *Timestamp      `json:"updated_at,omitempty"`
}

// AccountCreate is the payload for POST /accounts.
type AccountCreate struct {
	Name     string          `json:"account_name"`
	Type     AccountType     `json:"account_type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency,omitempty"`
}

// AccountUpdate is the payload for PUT /accounts/{id}.
type AccountUpdate struct {
	Name     *string          `json:"account_name,omitempty"`
	Type     *AccountType     `json:"account_type,omitempty"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Currency *string          `json:"currency,omitempty"`
}

// TypeBalance aggregates accounts of one type.
type TypeBalance struct {
	Count   int             `json:"count"`
	Balance decimal.Decimal `json:"balance"`
}

// AccountBrief is the compact account row inside BalanceSummary.
type AccountBrief struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// BalanceSummary is returned by /accounts/summary/balance.
type BalanceSummary struct {
	TotalBalance decimal.Decimal        `json:"total_balance"`
	AccountCount int                    `json:"account_count"`
	ByType       map[string]TypeBalance `json:"by_type"`
	Accounts     []AccountBrief         `json:"accounts"`
}
