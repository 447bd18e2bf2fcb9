package model

import "github.com/shopspring/decimal"

// Transaction types.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is a single income or expense entry.
type Transaction struct {
	ID                 int             `json:"id"`
	UserID             int             `json:"user_id"`
	AccountID          int             `json:"account_id"`
	Amount             decimal.Decimal `json:"amount"`
	Type               string          `json:"transaction_type"`
	Category           string          `json:"category"`
	Description        *string         `json:"description,omitempty"`
	Date               Date            `json:"transaction_date"`
	AutoCategorized    int             `json:"auto_categorized"`
	CategoryConfidence *float64        `json:"category_confidence,omitempty"`
	CreatedAt          Timestamp       `json:"created_at"`
	UpdatedAt          *Timestamp      `json:"updated_at,omitempty"`
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TransactionExpense
}

// TransactionCreate is the payload for POST /transactions.
type TransactionCreate struct {
	AccountID   int             `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"transaction_type"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        Date            `json:"transaction_date"`
}

// TransactionUpdate is the payload for PUT /transactions/{id}.
type TransactionUpdate struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *string          `json:"transaction_type,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *Date            `json:"transaction_date,omitempty"`
}

// TransactionFilter narrows GET /transactions. Zero fields are omitted.
type TransactionFilter struct {
	Skip      int
	Limit     int
	Category  string
	Type      string
	StartDate Date
	EndDate   Date
	AccountID int
}

// CategoryTotals is one category row in TransactionSummary.
type CategoryTotals struct {
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// TransactionSummary is returned by /transactions/summary.
type TransactionSummary struct {
	TotalIncome      decimal.Decimal           `json:"total_income"`
	TotalExpenses    decimal.Decimal           `json:"total_expenses"`
	Net              decimal.Decimal           `json:"net"`
	TransactionCount int                       `json:"transaction_count"`
	ByCategory       map[string]CategoryTotals `json:"by_category"`
}

// BulkCategorizeResult is returned by /transactions/bulk-categorize.
type BulkCategorizeResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}
