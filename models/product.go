package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bulk-order-service/apperrors"
)

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductInput is the create/update payload accepted from administrators.
type ProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
}

func (in *ProductInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

func (in *ProductInput) Validate() error {
	if in.Name == "" {
		return apperrors.Validation("Name is required")
	}
	if in.UnitPrice.IsNegative() {
		return apperrors.Validation("Unit price must be >= 0")
	}
	if in.StockQuantity < 0 {
		return apperrors.Validation("Stock quantity must be >= 0")
	}
	return nil
}

func (in *ProductInput) Apply(p *Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.UnitPrice = in.UnitPrice.Round(2)
	p.StockQuantity = in.StockQuantity
	p.ImageURL = in.ImageURL
}
