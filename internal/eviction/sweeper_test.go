package eviction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/clock"
	"github.com/cutwerk/inventory-service/internal/shopify"
)

type fakeCatalog struct {
	pages   []*shopify.CatalogPage
	deleted []string
	gone    map[string]bool
	listErr error
}

func (f *fakeCatalog) ListProducts(_ context.Context, cursor string, _ int) (*shopify.CatalogPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	idx := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &idx)
	}
	return f.pages[idx], nil
}

func (f *fakeCatalog) DeleteVariant(_ context.Context, _, variantID string) error {
	if f.gone[variantID] {
		return fmt.Errorf("%w: %s", shopify.ErrVariantGone, variantID)
	}
	f.deleted = append(f.deleted, variantID)
	return nil
}

func tempVariant(id string, createdAt time.Time) shopify.CatalogVariant {
	return shopify.CatalogVariant{
		ID:        id,
		Title:     "Länge | 1200 mm",
		CreatedAt: createdAt,
	}
}

func singlePage(products ...shopify.CatalogProduct) []*shopify.CatalogPage {
	return []*shopify.CatalogPage{{Products: products}}
}

func TestSweepDeletesOldestExcess(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	// Five temp variants, all older than the buffer, created out of order.
	product := shopify.CatalogProduct{ID: "gid://shopify/Product/7"}
	for i, age := range []time.Duration{100, 300, 200, 500, 400} {
		product.Variants = append(product.Variants,
			tempVariant(fmt.Sprintf("v%d", i), now.Add(-age*time.Hour)))
	}
	catalog := &fakeCatalog{pages: singlePage(product)}

	s := NewSweeper(catalog, clk, 3, 72*time.Hour, zap.NewNop())
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)

	// ceiling=3, population=5: exactly 2 go, oldest first.
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"v3", "v4"}, catalog.deleted)
}

func TestSweepRespectsBuffer(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	// Population far above the ceiling, but everything is younger than the
	// buffer: nothing may be deleted.
	product := shopify.CatalogProduct{ID: "gid://shopify/Product/7"}
	for i := 0; i < 5; i++ {
		product.Variants = append(product.Variants,
			tempVariant(fmt.Sprintf("v%d", i), now.Add(-time.Duration(i+1)*time.Hour)))
	}
	catalog := &fakeCatalog{pages: singlePage(product)}

	s := NewSweeper(catalog, clk, 1, 72*time.Hour, zap.NewNop())
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, catalog.deleted)
}

func TestSweepPartialEligibility(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	// Excess is 3 but only one variant has aged past the buffer: delete
	// just that one.
	product := shopify.CatalogProduct{
		ID: "gid://shopify/Product/7",
		Variants: []shopify.CatalogVariant{
			tempVariant("old", now.Add(-100*time.Hour)),
			tempVariant("y1", now.Add(-1*time.Hour)),
			tempVariant("y2", now.Add(-2*time.Hour)),
			tempVariant("y3", now.Add(-3*time.Hour)),
		},
	}
	catalog := &fakeCatalog{pages: singlePage(product)}

	s := NewSweeper(catalog, clk, 1, 72*time.Hour, zap.NewNop())
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"old"}, catalog.deleted)
}

func TestSweepIgnoresPersistentVariants(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	// Starter variants never match the temp pattern, so they are not even
	// counted against the ceiling.
	product := shopify.CatalogProduct{
		ID: "gid://shopify/Product/7",
		Variants: []shopify.CatalogVariant{
			{ID: "starter", Title: "Default Title", CreatedAt: now.Add(-1000 * time.Hour)},
			tempVariant("t1", now.Add(-100*time.Hour)),
		},
	}
	catalog := &fakeCatalog{pages: singlePage(product)}

	s := NewSweeper(catalog, clk, 1, 72*time.Hour, zap.NewNop())
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSweepAcrossPagesSkipsGoneVariants(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	productA := shopify.CatalogProduct{
		ID: "gid://shopify/Product/1",
		Variants: []shopify.CatalogVariant{
			tempVariant("a1", now.Add(-100*time.Hour)),
			tempVariant("a2", now.Add(-200*time.Hour)),
		},
	}
	productB := shopify.CatalogProduct{
		ID: "gid://shopify/Product/2",
		Variants: []shopify.CatalogVariant{
			tempVariant("b1", now.Add(-100*time.Hour)),
			tempVariant("b2", now.Add(-200*time.Hour)),
		},
	}

	catalog := &fakeCatalog{
		pages: []*shopify.CatalogPage{
			{Products: []shopify.CatalogProduct{productA}, HasNextPage: true, EndCursor: "page-1"},
			{Products: []shopify.CatalogProduct{productB}},
		},
		gone: map[string]bool{"a2": true},
	}

	s := NewSweeper(catalog, clk, 1, 72*time.Hour, zap.NewNop())
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)

	// a2 was already deleted remotely: a no-op, not a failure. b2 from the
	// second page still goes.
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"b2"}, catalog.deleted)
}

type failingPublisher struct {
	calls int
}

func (f *failingPublisher) PublishEvicted(context.Context, int) error {
	f.calls++
	return fmt.Errorf("broker unreachable")
}

func TestSweepPublishFailureDoesNotFailSweep(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)

	product := shopify.CatalogProduct{
		ID: "gid://shopify/Product/7",
		Variants: []shopify.CatalogVariant{
			tempVariant("t1", now.Add(-100*time.Hour)),
			tempVariant("t2", now.Add(-200*time.Hour)),
		},
	}
	catalog := &fakeCatalog{pages: singlePage(product)}

	pub := &failingPublisher{}
	s := NewSweeper(catalog, clk, 1, 72*time.Hour, zap.NewNop())
	s.SetPublisher(pub)

	// Publishing is best-effort: deletions stand and the sweep reports
	// success even when the broker is down.
	deleted, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, []string{"t2"}, catalog.deleted)
}

func TestSweepFailsOnPageError(t *testing.T) {
	catalog := &fakeCatalog{listErr: fmt.Errorf("throttled")}
	s := NewSweeper(catalog, clock.NewFakeClock(time.Now()), 1, time.Hour, zap.NewNop())

	_, err := s.Sweep(context.Background())
	require.Error(t, err)
}
