package model

import "github.com/shopspring/decimal"

type ConfigItem struct {
	ID        string           `json:"id" yaml:"id" validate:"required"`
	Name      string           `json:"name" yaml:"name"`
	Price     decimal.Decimal  `json:"price" yaml:"price"`
	ValueCost *decimal.Decimal `json:"value_cost,omitempty" yaml:"value_cost,omitempty"`
	Odds      float64          `json:"odds" yaml:"odds"`
}

// Value is the amount used for expected value math: value_cost when set, otherwise price.
func (i ConfigItem) Value() decimal.Decimal {
	if i.ValueCost != nil {
		return *i.ValueCost
	}

	return i.Price
}

type TierAllocation struct {
	TierName       string       `json:"tier_name"`
	DisplayName    string       `json:"display_name"`
	Color          string       `json:"color"`
	Probability    float64      `json:"probability"`
	Items          []ConfigItem `json:"items"`
	ItemCount      int          `json:"item_count"`
	AvgValue       float64      `json:"avg_value"`
	MinValue       float64      `json:"min_value"`
	MaxValue       float64      `json:"max_value"`
	EVContribution float64      `json:"ev_contribution"`
}

type AutoConfigResult struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	ErrorKind ErrorKind        `json:"error_kind,omitempty"`
	Tiers     []TierAllocation `json:"tiers"`
	TotalEV   float64          `json:"total_ev"`
	ActualRTP float64          `json:"actual_rtp"`
	HouseEdge float64          `json:"house_edge"`
}
