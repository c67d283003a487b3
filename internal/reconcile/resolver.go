package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/domain"
)

// Legacy property marker from before starter-variant metafields existed.
// Both spellings occur in old orders.
var legacyMarkerNames = []string{"_starter_variant_id", "starter_variant_id"}

// Resolver maps a dimensioned line item to the inventory item of its
// starter variant, through a three-tier fallback chain of increasingly
// stale evidence.
type Resolver struct {
	store  StoreClient
	logger *zap.Logger
}

func NewResolver(store StoreClient, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve determines where the line item's stock lives. For the annotation
// and legacy-property tiers it returns the inventory item GID to deduct
// from. The first-variant tier has no starter indirection: it deducts
// directly during resolution and returns Applied=true, telling the caller
// to skip its own deduction.
func (r *Resolver) Resolve(ctx context.Context, item domain.LineItem, locationID string) (domain.Resolution, string, error) {
	// Tier 1: durable annotation on the purchased temp variant.
	value, err := r.store.VariantMetafield(ctx, item.VariantID, MetafieldNamespace, StarterVariantKey)
	if err != nil {
		return domain.Resolution{}, "", fmt.Errorf("read starter annotation: %w", err)
	}
	if value != "" {
		res := domain.Resolution{Source: domain.ByAnnotation, StarterVariantID: domain.StripGIDPrefix(value)}
		inventoryItemID, err := r.starterInventoryItem(ctx, res.StarterVariantID)
		if err != nil {
			return domain.Resolution{}, "", err
		}
		return res, inventoryItemID, nil
	}

	// Tier 2: legacy marker embedded in the line item's properties.
	if value, ok := item.Property(legacyMarkerNames...); ok && value != "" {
		res := domain.Resolution{Source: domain.ByLegacyProperty, StarterVariantID: domain.StripGIDPrefix(value)}
		inventoryItemID, err := r.starterInventoryItem(ctx, res.StarterVariantID)
		if err != nil {
			return domain.Resolution{}, "", err
		}
		return res, inventoryItemID, nil
	}

	// Tier 3: product's first variant. Pre-annotation orders only.
	r.logger.Info("No starter annotation, falling back to first variant",
		zap.Int64("product_id", item.ProductID),
		zap.Int64("variant_id", item.VariantID))

	fv, err := r.store.ProductFirstVariant(ctx, item.ProductID)
	if err != nil {
		return domain.Resolution{}, "", fmt.Errorf("fetch first variant: %w", err)
	}
	if fv == nil || fv.InventoryItemID == "" {
		return domain.Resolution{}, "", fmt.Errorf("%w: product %d has no variant with stock", ErrNotFound, item.ProductID)
	}
	if err := r.store.AdjustInventory(ctx, fv.InventoryItemID, locationID, -item.Quantity); err != nil {
		return domain.Resolution{}, "", fmt.Errorf("adjust first-variant inventory: %w", err)
	}
	return domain.Resolution{Source: domain.ByFirstVariant, Applied: true}, fv.InventoryItemID, nil
}

func (r *Resolver) starterInventoryItem(ctx context.Context, starterVariantID string) (string, error) {
	inventoryItemID, err := r.store.VariantInventoryItem(ctx, starterVariantID)
	if err != nil {
		return "", fmt.Errorf("fetch starter inventory item: %w", err)
	}
	if inventoryItemID == "" {
		return "", fmt.Errorf("%w: starter variant %s", ErrNotFound, starterVariantID)
	}
	return inventoryItemID, nil
}
