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

	"github.com/pinme-ledger/internal/domain"
)

// LoginTokenRepo manages OTP login tokens.
// PK: phone_number, SK: token_id (ULID, so newer tokens sort last).
// TTL on expires_at reclaims dead rows in the background.
type LoginTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewLoginTokenRepo(client *dynamodb.Client, tableName string) *LoginTokenRepo {
	return &LoginTokenRepo{client: client, tableName: tableName}
}

const liveCondition = "attribute_not_exists(" + fieldUsedAt + ") AND " + fieldExpiresAt + " > :now"

func (r *LoginTokenRepo) Create(ctx context.Context, t *domain.LoginToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal login token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldTokenID + ")"),
	})
	return mapCondErr(err)
}

func (r *LoginTokenRepo) ExpireLive(ctx context.Context, phoneNumber, keepTokenID string, now time.Time) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String(fieldPhoneNumber + " = :p"),
		FilterExpression:       aws.String(liveCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: phoneNumber},
			":now": unixAttr(now),
		},
		ConsistentRead: aws.Bool(true),
	}
	var ids []string
	err := queryAll(ctx, r.client, input, func(items []map[string]types.AttributeValue) (bool, error) {
		var page []domain.LoginToken
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return false, err
		}
		for _, t := range page {
			if t.TokenID != keepTokenID {
				ids = append(ids, t.TokenID)
			}
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, tokenID := range ids {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       compositeKey(fieldPhoneNumber, phoneNumber, fieldTokenID, tokenID),
			UpdateExpression:          aws.String("SET " + fieldExpiresAt + " = :now"),
			ConditionExpression:       aws.String(liveCondition),
			ExpressionAttributeValues: map[string]types.AttributeValue{":now": unixAttr(now)},
		})
		if isConditionFailed(err) {
			// Used or expired since the query; nothing to invalidate.
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *LoginTokenRepo) FindLatestValid(ctx context.Context, phoneNumber, codeHash string, now time.Time) (*domain.LoginToken, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String(fieldPhoneNumber + " = :p"),
		FilterExpression:       aws.String(fieldCodeHash + " = :h AND " + liveCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: phoneNumber},
			":h":   &types.AttributeValueMemberS{Value: codeHash},
			":now": unixAttr(now),
		},
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	}
	var found *domain.LoginToken
	err := queryAll(ctx, r.client, input, func(items []map[string]types.AttributeValue) (bool, error) {
		if len(items) == 0 {
			return true, nil
		}
		var t domain.LoginToken
		if err := attributevalue.UnmarshalMap(items[0], &t); err != nil {
			return false, err
		}
		found = &t
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("login token not found: %w", domain.ErrNotFound)
	}
	return found, nil
}

func (r *LoginTokenRepo) MarkUsed(ctx context.Context, phoneNumber, tokenID string, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(fieldPhoneNumber, phoneNumber, fieldTokenID, tokenID),
		UpdateExpression:          aws.String("SET " + fieldUsedAt + " = :now"),
		ConditionExpression:       aws.String("attribute_exists(" + fieldTokenID + ") AND " + liveCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{":now": unixAttr(now)},
	})
	return mapCondErr(err)
}

// DeleteStale scans for used or expired tokens and deletes them one by one,
// re-checking staleness in the delete condition.
func (r *LoginTokenRepo) DeleteStale(ctx context.Context, now time.Time) (int, error) {
	const staleCondition = "attribute_exists(" + fieldUsedAt + ") OR " + fieldExpiresAt + " <= :now"
	values := map[string]types.AttributeValue{":now": unixAttr(now)}

	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(staleCondition),
		ProjectionExpression:      aws.String(fieldPhoneNumber + ", " + fieldTokenID),
		ExpressionAttributeValues: values,
	})
	n := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return n, err
		}
		for _, item := range page.Items {
			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:                 aws.String(r.tableName),
				Key:                       map[string]types.AttributeValue{fieldPhoneNumber: item[fieldPhoneNumber], fieldTokenID: item[fieldTokenID]},
				ConditionExpression:       aws.String(staleCondition),
				ExpressionAttributeValues: values,
			})
			if isConditionFailed(err) {
				continue
			}
			if err != nil {
				slog.Warn("delete stale login token failed", "err", err)
				continue
			}
			n++
		}
	}
	return n, nil
}
