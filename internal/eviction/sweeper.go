package eviction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/clock"
	"github.com/cutwerk/inventory-service/internal/domain"
	"github.com/cutwerk/inventory-service/internal/shopify"
)

const pageSize = 50

// CatalogClient is the slice of the remote store the sweeper needs.
type CatalogClient interface {
	ListProducts(ctx context.Context, cursor string, pageSize int) (*shopify.CatalogPage, error)
	DeleteVariant(ctx context.Context, productID, variantID string) error
}

// Publisher emits a lifecycle event after a sweep that deleted something.
type Publisher interface {
	PublishEvicted(ctx context.Context, deleted int) error
}

// Sweeper bounds the population of temporary dimension variants. Per
// product it deletes the oldest temp variants beyond the ceiling, but never
// one younger than the buffer, so in-flight orders keep their variant.
type Sweeper struct {
	store     CatalogClient
	clock     clock.Clock
	ceiling   int
	buffer    time.Duration
	publisher Publisher
	logger    *zap.Logger
}

func NewSweeper(store CatalogClient, clk clock.Clock, ceiling int, buffer time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:   store,
		clock:   clk,
		ceiling: ceiling,
		buffer:  buffer,
		logger:  logger,
	}
}

func (s *Sweeper) SetPublisher(pub Publisher) {
	s.publisher = pub
}

// Sweep walks the full product catalog once and returns how many variants
// it deleted. A failed page fails the sweep; there is no checkpoint, the
// next invocation restarts from the beginning. Safe because deletions are
// idempotent.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	deleted := 0
	cursor := ""

	for {
		page, err := s.store.ListProducts(ctx, cursor, pageSize)
		if err != nil {
			return deleted, fmt.Errorf("list products: %w", err)
		}

		for _, product := range page.Products {
			n, err := s.sweepProduct(ctx, product)
			if err != nil {
				return deleted, err
			}
			deleted += n
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	s.logger.Info("Sweep completed", zap.Int("deleted", deleted))

	if deleted > 0 && s.publisher != nil {
		if err := s.publisher.PublishEvicted(ctx, deleted); err != nil {
			s.logger.Error("Failed to publish eviction event", zap.Error(err))
		}
	}
	return deleted, nil
}

func (s *Sweeper) sweepProduct(ctx context.Context, product shopify.CatalogProduct) (int, error) {
	var temps []shopify.CatalogVariant
	for _, v := range product.Variants {
		if domain.IsTempVariantTitle(v.Title) {
			temps = append(temps, v)
		}
	}

	if len(temps) <= s.ceiling {
		return 0, nil
	}
	excess := len(temps) - s.ceiling

	// Only variants older than the buffer are eligible, no matter how far
	// the population exceeds the ceiling.
	now := s.clock.Now()
	eligible := temps[:0:0]
	for _, v := range temps {
		if now.Sub(v.CreatedAt) > s.buffer {
			eligible = append(eligible, v)
		}
	}

	if len(eligible) == 0 {
		s.logger.Info("Excess temp variants all within buffer, skipping",
			zap.String("product_id", product.ID),
			zap.Int("temp_variants", len(temps)),
			zap.Int("excess", excess))
		return 0, nil
	}

	// Oldest first: those belong to the orders least likely to still be
	// in flight.
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if excess < len(eligible) {
		eligible = eligible[:excess]
	}

	deleted := 0
	for _, v := range eligible {
		if err := s.store.DeleteVariant(ctx, product.ID, v.ID); err != nil {
			if errors.Is(err, shopify.ErrVariantGone) {
				s.logger.Info("Temp variant already deleted",
					zap.String("variant_id", v.ID))
				continue
			}
			return deleted, fmt.Errorf("delete variant %s: %w", v.ID, err)
		}
		deleted++

		s.logger.Info("Temp variant evicted",
			zap.String("product_id", product.ID),
			zap.String("variant_id", v.ID),
			zap.Time("created_at", v.CreatedAt))
	}
	return deleted, nil
}
