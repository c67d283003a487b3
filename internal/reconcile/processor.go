package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/internal/domain"
	"github.com/cutwerk/inventory-service/internal/shopify"
	"github.com/cutwerk/inventory-service/internal/signature"
	"github.com/cutwerk/inventory-service/pkg/config"
)

var (
	// ErrUnauthorized: signature mismatch. Never retried with the same
	// credentials.
	ErrUnauthorized = errors.New("unauthorized event")

	// ErrMalformed: unparseable body or missing required fields. Permanent.
	ErrMalformed = errors.New("malformed event")

	// ErrNotFound: the starter-variant fallback chain was exhausted for a
	// line item.
	ErrNotFound = errors.New("inventory item not found")

	// ErrUpstream: any remote-store transport or user error. The event
	// source is expected to redeliver.
	ErrUpstream = errors.New("upstream store failure")
)

// Metafield namespace and keys owned by this service.
const (
	MetafieldNamespace = "cutwerk"
	StarterVariantKey  = "starter_variant"
	SyncedKey          = "inventory_synced"
)

// StoreClient is the slice of the remote store the processor needs.
type StoreClient interface {
	VariantMetafield(ctx context.Context, variantID int64, namespace, key string) (string, error)
	VariantInventoryItem(ctx context.Context, variantID string) (string, error)
	ProductFirstVariant(ctx context.Context, productID int64) (*shopify.FirstVariant, error)
	PrimaryLocation(ctx context.Context) (string, error)
	OrderMetafield(ctx context.Context, orderID int64, namespace, key string) (string, error)
	SetOrderMetafield(ctx context.Context, orderID int64, namespace, key, value string) error
	AdjustInventory(ctx context.Context, inventoryItemID, locationID string, delta int) error
}

// IncidentRecorder persists the deducted-but-unmarked failure for operator
// reconciliation. Optional; a nil recorder only loses the durable record,
// not the log signal.
type IncidentRecorder interface {
	RecordMarkFailure(ctx context.Context, orderID int64, itemsDeducted int, cause error) error
}

// Publisher emits lifecycle events after successful reconciliation.
// Publish failures never fail the event.
type Publisher interface {
	PublishReconciled(ctx context.Context, orderID int64, itemsDeducted int) error
}

type Processor struct {
	store     StoreClient
	verifier  *signature.Verifier
	resolver  *Resolver
	incidents IncidentRecorder
	publisher Publisher
	cfg       *config.Config
	logger    *zap.Logger
}

func NewProcessor(store StoreClient, verifier *signature.Verifier, cfg *config.Config, logger *zap.Logger) *Processor {
	return &Processor{
		store:    store,
		verifier: verifier,
		resolver: NewResolver(store, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// SetIncidentRecorder injects the optional incident store.
func (p *Processor) SetIncidentRecorder(r IncidentRecorder) {
	p.incidents = r
}

// SetPublisher injects the optional lifecycle event publisher.
func (p *Processor) SetPublisher(pub Publisher) {
	p.publisher = pub
}

// Process reconciles one inbound order event. rawBody is the exact payload
// as received; claim is the transport signature header. The event source
// delivers at least once, so the whole method is idempotent per order ID.
func (p *Processor) Process(ctx context.Context, rawBody []byte, claim string) error {
	if !p.verifier.Verify(rawBody, claim) {
		p.logger.Warn("Rejected event with invalid signature")
		return ErrUnauthorized
	}

	var event domain.OrderEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.ID == 0 {
		return fmt.Errorf("%w: missing order id", ErrMalformed)
	}
	for _, item := range event.LineItems {
		// A non-positive quantity would flip the deduction into an
		// increase. Bad shape, rejected before any remote call.
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: non-positive quantity %d for variant %d", ErrMalformed, item.Quantity, item.VariantID)
		}
	}

	synced, err := p.store.OrderMetafield(ctx, event.ID, MetafieldNamespace, SyncedKey)
	if err != nil {
		return fmt.Errorf("%w: idempotency check: %v", ErrUpstream, err)
	}
	if synced != "" {
		p.logger.Info("Event already reconciled, skipping",
			zap.Int64("order_id", event.ID))
		return nil
	}

	locationID := p.cfg.LocationID
	if locationID == "" {
		locationID, err = p.store.PrimaryLocation(ctx)
		if err != nil {
			return fmt.Errorf("%w: resolve location: %v", ErrUpstream, err)
		}
	}

	deducted := 0
	for _, item := range event.LineItems {
		if !item.Dimensioned() {
			continue
		}

		res, inventoryItemID, err := p.resolver.Resolve(ctx, item, locationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: resolve variant %d: %v", ErrUpstream, item.VariantID, err)
		}

		if !res.Applied {
			if err := p.store.AdjustInventory(ctx, inventoryItemID, locationID, -item.Quantity); err != nil {
				// Earlier items in this event stay deducted; the marker is
				// not set, so a redelivery retries the event in full.
				return fmt.Errorf("%w: adjust inventory for variant %d: %v", ErrUpstream, item.VariantID, err)
			}
		}
		deducted++

		p.logger.Info("Inventory deducted",
			zap.Int64("order_id", event.ID),
			zap.Int64("variant_id", item.VariantID),
			zap.Int("quantity", item.Quantity),
			zap.String("resolved_by", res.Source.String()))
	}

	if err := p.store.SetOrderMetafield(ctx, event.ID, MetafieldNamespace, SyncedKey, "true"); err != nil {
		// Inventory is already deducted but the event is not marked, so a
		// redelivery will deduct again. Dedicated signal for operator
		// reconciliation.
		p.logger.Error("Inventory deducted but event not marked processed",
			zap.Int64("order_id", event.ID),
			zap.Int("items_deducted", deducted),
			zap.Error(err))
		if p.incidents != nil {
			if rerr := p.incidents.RecordMarkFailure(ctx, event.ID, deducted, err); rerr != nil {
				p.logger.Error("Failed to record mark-failure incident",
					zap.Int64("order_id", event.ID),
					zap.Error(rerr))
			}
		}
		return fmt.Errorf("%w: mark event processed: %v", ErrUpstream, err)
	}

	p.logger.Info("Event reconciled",
		zap.Int64("order_id", event.ID),
		zap.Int("items_deducted", deducted))

	if p.publisher != nil {
		if err := p.publisher.PublishReconciled(ctx, event.ID, deducted); err != nil {
			p.logger.Error("Failed to publish reconciled event",
				zap.Int64("order_id", event.ID),
				zap.Error(err))
		}
	}
	return nil
}
