package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CategoryResult is the outcome of categorizing one description.
type CategoryResult struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

// PredictionRequest is the payload for /ml/predict-expenses.
type PredictionRequest struct {
	MonthsAhead int      `json:"months_ahead"`
	Categories  []string `json:"categories,omitempty"`
}

// ExpensePrediction is the next-period expense forecast.
type ExpensePrediction struct {
	Total          decimal.Decimal            `json:"total"`
	Predictions    map[string]decimal.Decimal `json:"predictions"`
	Confidence     string                     `json:"confidence"`
	PredictionDate Date                       `json:"prediction_date"`
	Message        string                     `json:"message,omitempty"`
}

// UnmarshalJSON accepts the backend wire shape, where predictions is a list
// of single-entry objects and the total is named total_predicted.
func (p *ExpensePrediction) UnmarshalJSON(data []byte) error {
	var wire struct {
		Predictions    json.RawMessage  `json:"predictions"`
		TotalPredicted *decimal.Decimal `json:"total_predicted"`
		Total          *decimal.Decimal `json:"total"`
		Confidence     string           `json:"confidence"`
		PredictionDate Date             `json:"prediction_date"`
		Message        *string          `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	preds := make(map[string]decimal.Decimal)
	if len(wire.Predictions) > 0 && wire.Predictions[0] == '[' {
		var list []map[string]decimal.Decimal
		if err := json.Unmarshal(wire.Predictions, &list); err != nil {
			return err
		}
		for _, entry := range list {
			for k, v := range entry {
				preds[k] = preds[k].Add(v)
			}
		}
	} else if len(wire.Predictions) > 0 && string(wire.Predictions) != "null" {
		if err := json.Unmarshal(wire.Predictions, &preds); err != nil {
			return err
		}
	}

	*p = ExpensePrediction{
		Predictions:    preds,
		Confidence:     wire.Confidence,
		PredictionDate: wire.PredictionDate,
	}
	switch {
	case wire.TotalPredicted != nil:
		p.Total = *wire.TotalPredicted
	case wire.Total != nil:
		p.Total = *wire.Total
	default:
		for _, v := range preds {
			p.Total = p.Total.Add(v)
		}
	}
	if wire.Message != nil {
		p.Message = *wire.Message
	}
	return nil
}

// SpendingTrend describes one category's month-over-month movement.
type SpendingTrend struct {
	Category         string          `json:"category"`
	MonthlyAverage   decimal.Decimal `json:"monthly_average"`
	Trend            string          `json:"trend"`
	PercentageChange float64         `json:"percentage_change"`
	LastMonthAmount  decimal.Decimal `json:"last_month_amount"`
}
