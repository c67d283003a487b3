package domain

import "strings"

// OrderEvent is the parsed body of an orders/paid webhook. The source may
// redeliver the same event, so the order ID is the idempotency boundary.
type OrderEvent struct {
	ID        int64      `json:"id"`
	LineItems []LineItem `json:"line_items"`
}

type LineItem struct {
	ProductID  int64          `json:"product_id"`
	VariantID  int64          `json:"variant_id"`
	Quantity   int            `json:"quantity"`
	Properties []ItemProperty `json:"properties"`
}

type ItemProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Dimension marker property names, with localized aliases accepted by the
// storefront UI.
var lengthMarkers = []string{"length", "länge", "longueur"}
var widthMarkers = []string{"width", "breite", "largeur"}

// Dimensioned reports whether the line item carries a recognized dimension
// property and therefore participates in inventory reconciliation.
func (li LineItem) Dimensioned() bool {
	for _, p := range li.Properties {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		for _, m := range lengthMarkers {
			if name == m {
				return true
			}
		}
		for _, m := range widthMarkers {
			if name == m {
				return true
			}
		}
	}
	return false
}

// Property returns the value of the first property matching any of the given
// names (case-insensitive), and whether one was found.
func (li LineItem) Property(names ...string) (string, bool) {
	for _, p := range li.Properties {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		for _, want := range names {
			if name == want {
				return p.Value, true
			}
		}
	}
	return "", false
}
