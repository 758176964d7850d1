package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shoplite/shoplite/internal/domain"
)

// rowIDSep separates PK from SK in row ids for composite-key tables.
// None of our key values (ULIDs, emails, "email#..." keys) contain it.
const rowIDSep = "|"

// TableRepo is an untyped view over any application table, used by the admin
// data viewer. Rows come back as raw attribute maps so the viewer can render
// every table without per-entity code.
type TableRepo struct {
	client    *dynamodb.Client
	tableName string
	pkName    string
	skName    string // empty for single-key tables
}

func NewTableRepo(client *dynamodb.Client, tableName, pkName, skName string) *TableRepo {
	return &TableRepo{client: client, tableName: tableName, pkName: pkName, skName: skName}
}

// ScanPage returns a page of raw rows. cursor is a base64-encoded row id
// (PK, or PK|SK for composite tables) used as ExclusiveStartKey.
func (r *TableRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]map[string]interface{}, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		rowID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		key, err := r.key(rowID)
		if err != nil {
			return nil, "", err
		}
		input.ExclusiveStartKey = key
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var rows []map[string]interface{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
		return nil, "", err
	}
	return rows, r.nextCursor(out.LastEvaluatedKey), nil
}

// Delete removes one row by its id (PK, or PK|SK for composite tables).
func (r *TableRepo) Delete(ctx context.Context, rowID string) error {
	key, err := r.key(rowID)
	if err != nil {
		return err
	}
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	return err
}

// RowID renders the deletable id for a raw row returned by ScanPage.
func (r *TableRepo) RowID(row map[string]interface{}) string {
	pk, _ := row[r.pkName].(string)
	if r.skName == "" {
		return pk
	}
	sk, _ := row[r.skName].(string)
	return pk + rowIDSep + sk
}

func (r *TableRepo) key(rowID string) (map[string]types.AttributeValue, error) {
	if r.skName == "" {
		if strings.Contains(rowID, rowIDSep) {
			return nil, fmt.Errorf("unexpected composite id %q: %w", rowID, domain.ErrBadRequest)
		}
		return strKey(r.pkName, rowID), nil
	}
	pk, sk, ok := strings.Cut(rowID, rowIDSep)
	if !ok || pk == "" || sk == "" {
		return nil, fmt.Errorf("composite id must be pk%ssk: %w", rowIDSep, domain.ErrBadRequest)
	}
	return compositeKey(r.pkName, pk, r.skName, sk), nil
}

func (r *TableRepo) nextCursor(lastKey map[string]types.AttributeValue) string {
	pkAttr, ok := lastKey[r.pkName].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	if r.skName == "" {
		return encodeCursor(pkAttr.Value)
	}
	skAttr, ok := lastKey[r.skName].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return encodeCursor(pkAttr.Value + rowIDSep + skAttr.Value)
}
