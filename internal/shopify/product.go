package shopify

import (
	json "github.com/goccy/go-json"

	"github.com/agenthands/compat/internal/core/model"
)

type productsResponse struct {
	Products []apiProduct `json:"products"`
}

type apiProduct struct {
	ID          json.Number  `json:"id"`
	Title       string       `json:"title"`
	Handle      string       `json:"handle"`
	Vendor      string       `json:"vendor"`
	ProductType string       `json:"product_type"`
	Status      string       `json:"status"`
	Variants    []apiVariant `json:"variants"`
	Image       *apiImage    `json:"image"`
}

type apiVariant struct {
	Price string `json:"price"`
	SKU   string `json:"sku"`
}

type apiImage struct {
	Src string `json:"src"`
}

// toModel renders the numeric id as a string and takes the price of the first variant.
func (p apiProduct) toModel() model.Product {
	out := model.Product{
		ID:     p.ID.String(),
		Title:  p.Title,
		Handle: p.Handle,
	}
	if len(p.Variants) > 0 {
		out.Price = p.Variants[0].Price
	}

	extra := map[string]any{}
	if p.Vendor != "" {
		extra["vendor"] = p.Vendor
	}
	if p.ProductType != "" {
		extra["productType"] = p.ProductType
	}
	if p.Status != "" {
		extra["status"] = p.Status
	}
	if p.Image != nil && p.Image.Src != "" {
		extra["image"] = p.Image.Src
	}
	if len(p.Variants) > 0 && p.Variants[0].SKU != "" {
		extra["sku"] = p.Variants[0].SKU
	}
	if len(extra) > 0 {
		out.Extra = extra
	}
	return out
}
