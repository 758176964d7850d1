package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shoplite/shoplite/internal/domain"
)

// OtpRepo manages issued one-time codes.
//
// The table is append-only: Put never inspects or removes earlier records for
// the same session+channel+target. Latest resolves supersession at read time
// by querying the lookup GSI newest-first. The GSI range key is the ULID
// otp_id, which sorts by creation time; the id generator is monotonic within
// the process, so same-millisecond issuances still order correctly.
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func (r *OtpRepo) Put(ctx context.Context, c *domain.OtpCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Latest returns the most recently created code matching session, channel and
// target exactly, or ErrNotFound when none exists.
func (r *OtpRepo) Latest(ctx context.Context, sessionID, channel, target string) (*domain.OtpCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("lookup-index"),
		KeyConditionExpression: aws.String("#l = :l"),
		ExpressionAttributeNames: map[string]string{
			"#l": "lookup",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":l": &types.AttributeValueMemberS{Value: domain.OtpLookup(sessionID, channel, target)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no outstanding code: %w", domain.ErrNotFound)
	}
	var c domain.OtpCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a consumed code. Deleting an already-gone record is not an
// error: DynamoDB DeleteItem succeeds on absent keys.
func (r *OtpRepo) Delete(ctx context.Context, otpID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("otp_id", otpID),
	})
	return err
}
