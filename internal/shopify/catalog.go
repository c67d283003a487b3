package shopify

import (
	"context"
	"errors"
	"time"
)

// ErrVariantGone marks a delete against a variant that no longer exists.
// Sweeps treat this as a no-op.
var ErrVariantGone = errors.New("variant already deleted")

type CatalogVariant struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

type CatalogProduct struct {
	ID       string
	Variants []CatalogVariant
}

type CatalogPage struct {
	Products    []CatalogProduct
	HasNextPage bool
	EndCursor   string
}

// ListProducts returns one page of the product catalog with each product's
// variants. Cursor "" starts from the beginning; the cursor is stable and
// monotonic across calls so a sweep terminates.
func (c *Client) ListProducts(ctx context.Context, cursor string, pageSize int) (*CatalogPage, error) {
	const q = `
		query listProducts($first: Int!, $after: String) {
			products(first: $first, after: $after) {
				edges {
					node {
						id
						variants(first: 100) {
							edges {
								node { id title createdAt }
							}
						}
					}
				}
				pageInfo { hasNextPage endCursor }
			}
		}`

	vars := map[string]any{"first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	var out struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID       string `json:"id"`
					Variants struct {
						Edges []struct {
							Node struct {
								ID        string    `json:"id"`
								Title     string    `json:"title"`
								CreatedAt time.Time `json:"createdAt"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"products"`
	}
	if err := c.do(ctx, q, vars, &out); err != nil {
		return nil, err
	}

	page := &CatalogPage{
		HasNextPage: out.Products.PageInfo.HasNextPage,
		EndCursor:   out.Products.PageInfo.EndCursor,
	}
	for _, pe := range out.Products.Edges {
		product := CatalogProduct{ID: pe.Node.ID}
		for _, ve := range pe.Node.Variants.Edges {
			product.Variants = append(product.Variants, CatalogVariant{
				ID:        ve.Node.ID,
				Title:     ve.Node.Title,
				CreatedAt: ve.Node.CreatedAt,
			})
		}
		page.Products = append(page.Products, product)
	}
	return page, nil
}
