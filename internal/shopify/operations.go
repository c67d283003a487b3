package shopify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// VariantMetafield reads a single metafield on a product variant. Returns ""
// when the variant exists but carries no such metafield.
func (c *Client) VariantMetafield(ctx context.Context, variantID int64, namespace, key string) (string, error) {
	const q = `
		query variantMetafield($id: ID!, $namespace: String!, $key: String!) {
			productVariant(id: $id) {
				metafield(namespace: $namespace, key: $key) { value }
			}
		}`

	var out struct {
		ProductVariant *struct {
			Metafield *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"productVariant"`
	}
	err := c.do(ctx, q, map[string]any{
		"id":        VariantGID(strconv.FormatInt(variantID, 10)),
		"namespace": namespace,
		"key":       key,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ProductVariant == nil || out.ProductVariant.Metafield == nil {
		return "", nil
	}
	return out.ProductVariant.Metafield.Value, nil
}

// VariantInventoryItem resolves a variant ID to its backing inventory item
// GID. Returns "" when the variant is missing or has no inventory item.
func (c *Client) VariantInventoryItem(ctx context.Context, variantID string) (string, error) {
	const q = `
		query variantInventoryItem($id: ID!) {
			productVariant(id: $id) {
				inventoryItem { id }
			}
		}`

	var out struct {
		ProductVariant *struct {
			InventoryItem *struct {
				ID string `json:"id"`
			} `json:"inventoryItem"`
		} `json:"productVariant"`
	}
	if err := c.do(ctx, q, map[string]any{"id": VariantGID(variantID)}, &out); err != nil {
		return "", err
	}
	if out.ProductVariant == nil || out.ProductVariant.InventoryItem == nil {
		return "", nil
	}
	return out.ProductVariant.InventoryItem.ID, nil
}

// FirstVariant is a product's first variant in the store's native order,
// with its backing inventory item.
type FirstVariant struct {
	VariantID       string
	InventoryItemID string
}

// ProductFirstVariant fetches the compatibility target for orders predating
// the starter-variant annotation. Returns nil when the product is missing
// or has no variants.
func (c *Client) ProductFirstVariant(ctx context.Context, productID int64) (*FirstVariant, error) {
	const q = `
		query productFirstVariant($id: ID!) {
			product(id: $id) {
				variants(first: 1) {
					edges {
						node {
							id
							inventoryItem { id }
						}
					}
				}
			}
		}`

	var out struct {
		Product *struct {
			Variants struct {
				Edges []struct {
					Node struct {
						ID            string `json:"id"`
						InventoryItem *struct {
							ID string `json:"id"`
						} `json:"inventoryItem"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"variants"`
		} `json:"product"`
	}
	if err := c.do(ctx, q, map[string]any{"id": ProductGID(productID)}, &out); err != nil {
		return nil, err
	}
	if out.Product == nil || len(out.Product.Variants.Edges) == 0 {
		return nil, nil
	}
	node := out.Product.Variants.Edges[0].Node
	fv := &FirstVariant{VariantID: node.ID}
	if node.InventoryItem != nil {
		fv.InventoryItemID = node.InventoryItem.ID
	}
	return fv, nil
}

// PrimaryLocation resolves the shop's stock location used for adjustments.
func (c *Client) PrimaryLocation(ctx context.Context) (string, error) {
	const q = `
		query primaryLocation {
			locations(first: 1) {
				edges { node { id } }
			}
		}`

	var out struct {
		Locations struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"locations"`
	}
	if err := c.do(ctx, q, nil, &out); err != nil {
		return "", err
	}
	if len(out.Locations.Edges) == 0 {
		return "", &GraphQLError{Messages: []string{"shop has no stock location"}}
	}
	return out.Locations.Edges[0].Node.ID, nil
}

// OrderMetafield reads a single metafield on an order. Returns "" when absent.
func (c *Client) OrderMetafield(ctx context.Context, orderID int64, namespace, key string) (string, error) {
	const q = `
		query orderMetafield($id: ID!, $namespace: String!, $key: String!) {
			order(id: $id) {
				metafield(namespace: $namespace, key: $key) { value }
			}
		}`

	var out struct {
		Order *struct {
			Metafield *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"order"`
	}
	err := c.do(ctx, q, map[string]any{
		"id":        OrderGID(orderID),
		"namespace": namespace,
		"key":       key,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Order == nil || out.Order.Metafield == nil {
		return "", nil
	}
	return out.Order.Metafield.Value, nil
}

// SetOrderMetafield writes an order metafield. Set-only; there is no unset.
func (c *Client) SetOrderMetafield(ctx context.Context, orderID int64, namespace, key, value string) error {
	const m = `
		mutation setOrderMetafield($metafields: [MetafieldsSetInput!]!) {
			metafieldsSet(metafields: $metafields) {
				userErrors { field message }
			}
		}`

	var out struct {
		MetafieldsSet struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	err := c.do(ctx, m, map[string]any{
		"metafields": []map[string]any{{
			"ownerId":   OrderGID(orderID),
			"namespace": namespace,
			"key":       key,
			"type":      "single_line_text_field",
			"value":     value,
		}},
	}, &out)
	if err != nil {
		return err
	}
	if len(out.MetafieldsSet.UserErrors) > 0 {
		return &MutationError{Op: "metafieldsSet", UserErrors: out.MetafieldsSet.UserErrors}
	}
	return nil
}

// AdjustInventory applies a relative delta to (inventory item, location).
// Always a delta, never an absolute set, so concurrent adjustments from
// other sources compose.
func (c *Client) AdjustInventory(ctx context.Context, inventoryItemID, locationID string, delta int) error {
	const m = `
		mutation adjustInventory($input: InventoryAdjustQuantitiesInput!) {
			inventoryAdjustQuantities(input: $input) {
				userErrors { field message }
			}
		}`

	var out struct {
		InventoryAdjustQuantities struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"inventoryAdjustQuantities"`
	}
	err := c.do(ctx, m, map[string]any{
		"input": map[string]any{
			"name":   "available",
			"reason": "correction",
			"changes": []map[string]any{{
				"inventoryItemId": inventoryItemID,
				"locationId":      LocationGID(locationID),
				"delta":           delta,
			}},
		},
	}, &out)
	if err != nil {
		return err
	}
	if len(out.InventoryAdjustQuantities.UserErrors) > 0 {
		return &MutationError{Op: "inventoryAdjustQuantities", UserErrors: out.InventoryAdjustQuantities.UserErrors}
	}
	return nil
}

// DeleteVariant removes a single variant from a product. Deleting an
// already-deleted variant reports ErrVariantGone so sweeps can skip it.
func (c *Client) DeleteVariant(ctx context.Context, productID, variantID string) error {
	const m = `
		mutation deleteVariant($productId: ID!, $variantsIds: [ID!]!) {
			productVariantsBulkDelete(productId: $productId, variantsIds: $variantsIds) {
				userErrors { field message }
			}
		}`

	var out struct {
		ProductVariantsBulkDelete struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productVariantsBulkDelete"`
	}
	err := c.do(ctx, m, map[string]any{
		"productId":   productID,
		"variantsIds": []string{variantID},
	}, &out)
	if err != nil {
		return err
	}
	for _, ue := range out.ProductVariantsBulkDelete.UserErrors {
		if isGoneError(ue) {
			return fmt.Errorf("%w: %s", ErrVariantGone, ue.Message)
		}
	}
	if len(out.ProductVariantsBulkDelete.UserErrors) > 0 {
		return &MutationError{Op: "productVariantsBulkDelete", UserErrors: out.ProductVariantsBulkDelete.UserErrors}
	}
	return nil
}

func isGoneError(ue UserError) bool {
	msg := strings.ToLower(ue.Message)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
