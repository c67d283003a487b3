package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgconfig "github.com/cutwerk/inventory-service/pkg/config"
)

const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Incident records the one failure mode that needs a human: inventory was
// deducted for an order but the idempotency marker write failed, so a
// redelivery will deduct again. The store is an operator audit trail, not a
// ledger; it never feeds back into stock numbers.
type Incident struct {
	IncidentID    string    `dynamodbav:"incident_id" json:"incident_id"`
	OrderID       int64     `dynamodbav:"order_id"    json:"order_id"`
	ItemsDeducted int       `dynamodbav:"items_deducted" json:"items_deducted"`
	Cause         string    `dynamodbav:"cause"       json:"cause"`
	Status        string    `dynamodbav:"status"      json:"status"`
	CreatedAt     time.Time `dynamodbav:"created_at"  json:"created_at"`
}

type IncidentStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

func NewDynamoDBClient(cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg), nil
}

func NewIncidentStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *IncidentStore {
	return &IncidentStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (s *IncidentStore) RecordMarkFailure(ctx context.Context, orderID int64, itemsDeducted int, cause error) error {
	incident := Incident{
		IncidentID:    uuid.NewString(),
		OrderID:       orderID,
		ItemsDeducted: itemsDeducted,
		Cause:         cause.Error(),
		Status:        StatusOpen,
		CreatedAt:     time.Now().UTC(),
	}

	av, err := attributevalue.MarshalMap(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put incident: %w", err)
	}

	s.logger.Info("Mark-failure incident recorded",
		zap.String("incident_id", incident.IncidentID),
		zap.Int64("order_id", orderID))
	return nil
}

// ListOpen returns unresolved incidents for the operator endpoint.
func (s *IncidentStore) ListOpen(ctx context.Context) ([]Incident, error) {
	filter := expression.Equal(
		expression.Name("status"),
		expression.Value(StatusOpen),
	)

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, err
	}

	result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan incidents: %w", err)
	}

	var incidents []Incident
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &incidents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incidents: %w", err)
	}
	return incidents, nil
}
