package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shoplite/shoplite/internal/domain"
)

// IdentityRepo provides typed DynamoDB operations for the identities table.
//
// The partition key is the upsert key itself ("email#..." or "session#..."),
// so find-or-create-then-merge is a single UpdateItem: DynamoDB creates the
// item when absent and merges fields last-write-wins when present. No
// read-then-write sequence, so concurrent upserts for the same key can never
// create duplicate rows, and email uniqueness falls out of the key schema.
type IdentityRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIdentityRepo(client *dynamodb.Client, tableName string) *IdentityRepo {
	return &IdentityRepo{client: client, tableName: tableName}
}

// UpsertByEmail atomically merges fields into the identity keyed by email,
// creating it when absent. The email attribute is always written alongside
// the caller's fields.
func (r *IdentityRepo) UpsertByEmail(ctx context.Context, email string, fields map[string]interface{}) (*domain.Identity, error) {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["email"] = email
	return r.upsert(ctx, domain.EmailKey(email), merged)
}

// UpsertBySession atomically merges fields into the identity keyed by the
// anonymous session id, creating it when absent.
func (r *IdentityRepo) UpsertBySession(ctx context.Context, sessionID string, fields map[string]interface{}) (*domain.Identity, error) {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["session_id"] = sessionID
	return r.upsert(ctx, domain.SessionKey(sessionID), merged)
}

func (r *IdentityRepo) upsert(ctx context.Context, key string, fields map[string]interface{}) (*domain.Identity, error) {
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return nil, err
	}
	// created_at only on first write; updated_at always.
	now := time.Now().UTC().Format(time.RFC3339)
	ue.Expr += ", #cts = if_not_exists(#cts, :cts), #uts = :uts"
	ue.Names["#cts"] = fieldCreatedAt
	ue.Names["#uts"] = fieldUpdatedAt
	ue.Values[":cts"] = &types.AttributeValueMemberS{Value: now}
	ue.Values[":uts"] = &types.AttributeValueMemberS{Value: now}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("identity_key", key),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	var ident domain.Identity
	if err := attributevalue.UnmarshalMap(out.Attributes, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

func (r *IdentityRepo) Get(ctx context.Context, key string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("identity_key", key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var ident domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// GetBySession returns the identity currently bound to a session. A session
// can match both its anonymous row and a verified email row it rebound to;
// the verified row wins.
func (r *IdentityRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Identity, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("session_id-index"),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	var idents []domain.Identity
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &idents); err != nil {
		return nil, err
	}
	for i := range idents {
		if idents[i].EmailVerified {
			return &idents[i], nil
		}
	}
	return &idents[0], nil
}
