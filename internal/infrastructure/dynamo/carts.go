package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shoplite/shoplite/internal/domain"
)

// CartRepo provides typed DynamoDB operations for the cart_items table.
// PK: session_id, SK: product_id.
type CartRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCartRepo(client *dynamodb.Client, tableName string) *CartRepo {
	return &CartRepo{client: client, tableName: tableName}
}

// SetItem writes a cart line as a single atomic upsert: quantity and the
// name/price snapshot are overwritten, created_at survives from the first write.
func (r *CartRepo) SetItem(ctx context.Context, item *domain.CartItem) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"name":        item.Name,
		"price_cents": item.PriceCents,
		"quantity":    item.Quantity,
	})
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	ue.Expr += ", #cts = if_not_exists(#cts, :cts), #uts = :uts"
	ue.Names["#cts"] = fieldCreatedAt
	ue.Names["#uts"] = fieldUpdatedAt
	ue.Values[":cts"] = &types.AttributeValueMemberS{Value: now}
	ue.Values[":uts"] = &types.AttributeValueMemberS{Value: now}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("session_id", item.SessionID, "product_id", item.ProductID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("set cart item: %w", err)
	}
	return nil
}

func (r *CartRepo) List(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, err
	}
	var items []domain.CartItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartRepo) Delete(ctx context.Context, sessionID, productID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("session_id", sessionID, "product_id", productID),
	})
	return err
}

// Clear removes every line in a session's cart. Individual delete failures
// are logged and the first one is returned after the sweep finishes.
func (r *CartRepo) Clear(ctx context.Context, sessionID string) error {
	items, err := r.List(ctx, sessionID)
	if err != nil {
		return err
	}
	var firstErr error
	for i := range items {
		if err := r.Delete(ctx, sessionID, items[i].ProductID); err != nil {
			slog.Warn("failed to delete cart item during clear", "session_id", sessionID, "product_id", items[i].ProductID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
