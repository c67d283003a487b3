package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cutwerk/inventory-service/pkg/config"
)

// Client is a typed wrapper over the Admin GraphQL API. It is the only thing
// in this service that talks to the remote store; everything above it works
// with the typed operations and the error taxonomy below.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		endpoint: fmt.Sprintf("https://%s/admin/api/%s/graphql.json",
			cfg.ShopDomain, cfg.APIVersion),
		token:      cfg.AdminAPIToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// TransportError covers everything below the GraphQL layer: connection
// failures, timeouts, non-200 responses, undecodable bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GraphQLError is a top-level errors[] response from the store.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("store query error: %s", strings.Join(e.Messages, "; "))
}

// UserError is an embedded mutation failure. The store reports these with a
// 200 response, so every mutation result must be checked explicitly.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type MutationError struct {
	Op         string
	UserErrors []UserError
}

func (e *MutationError) Error() string {
	msgs := make([]string, 0, len(e.UserErrors))
	for _, ue := range e.UserErrors {
		msgs = append(msgs, ue.Message)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, strings.Join(msgs, "; "))
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return &TransportError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			msgs = append(msgs, e.Message)
		}
		c.logger.Error("Store query rejected", zap.Strings("errors", msgs))
		return &GraphQLError{Messages: msgs}
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return &TransportError{Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

// Global ID constructors for the entity types this service touches.

func VariantGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/ProductVariant/" + id
}

func ProductGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Product/%d", id)
}

func OrderGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Order/%d", id)
}

func LocationGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Location/" + id
}
