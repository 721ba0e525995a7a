package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/orders-service/internal/apperr"
	"github.com/imrishuroy/orders-service/internal/aws"
)

// Condition expressions. Attribute names go through placeholders because
// "status" is a DynamoDB reserved word.
const (
	beginCondition    = "attribute_not_exists(#k) OR #e < :now OR (#s = :inprogress AND #ip < :now_ms)"
	completeCondition = "#s = :inprogress"
	releaseCondition  = "#s = :inprogress"
)

// ErrReservationLost means Complete found no IN_PROGRESS record to finish.
var ErrReservationLost = errors.New("idempotency reservation no longer held")

// DynamoStore implements Store on a DynamoDB table keyed by idempotency_key,
// with expires_at as the table's TTL attribute.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // retention window for completed entries
	nowFunc   func() time.Time
}

// NewStore returns a configured DynamoStore.
// tableName: DynamoDB table name for idempotency entries.
// ttlWindow: how long a completed entry suppresses re-execution (e.g. 30*time.Second)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Begin reserves key with one conditional PutItem. The write succeeds when no
// record exists, the record is past its TTL, or an IN_PROGRESS record outlived
// its own deadline. Otherwise the old item comes back with the condition
// failure and decides between Duplicate and InProgress.
func (s *DynamoStore) Begin(ctx context.Context, key string) (Result, error) {
	now := s.nowFunc()
	rec := IdempotencyRecord{
		IdempotencyKey:      key,
		Status:              StatusInProgress,
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now.Add(s.ttlWindow).Unix(),
		InProgressExpiresAt: inProgressDeadline(ctx, now, s.ttlWindow).UnixMilli(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return Result{}, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString(beginCondition),
		ExpressionAttributeNames: map[string]string{
			"#k":  "idempotency_key",
			"#e":  "expires_at",
			"#s":  "status",
			"#ip": "in_progress_expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":        numberAttr(now.Unix()),
			":now_ms":     numberAttr(now.UnixMilli()),
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}

	_, err = s.client.PutItem(ctx, input)
	if err == nil {
		return Result{Outcome: Proceed}, nil
	}
	if !isConditionalCheckFailed(err) {
		return Result{}, apperr.NewStoreError(s.tableName, "put item", err)
	}

	var existing *IdempotencyRecord
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) && len(ccf.Item) > 0 {
		var old IdempotencyRecord
		if err := attributevalue.UnmarshalMap(ccf.Item, &old); err != nil {
			return Result{}, fmt.Errorf("unmarshal existing record: %w", err)
		}
		existing = &old
	} else {
		existing, err = s.Get(ctx, key)
		if err != nil {
			return Result{}, err
		}
	}
	return classify(existing), nil
}

// Get retrieves an idempotency record by key. If not found, returns (nil, nil).
func (s *DynamoStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: awsBool(true),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, apperr.NewStoreError(s.tableName, "get item", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec IdempotencyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Complete moves an IN_PROGRESS record to COMPLETED, stores the response
// snapshot and restarts the retention window from now.
func (s *DynamoStore) Complete(ctx context.Context, key string, responseBody []byte) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:    awsString("SET #s = :completed, response_body = :rb, updated_at = :ua, #e = :exp REMOVE #ip"),
		ConditionExpression: awsString(completeCondition),
		ExpressionAttributeNames: map[string]string{
			"#s":  "status",
			"#e":  "expires_at",
			"#ip": "in_progress_expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed":  &types.AttributeValueMemberS{Value: StatusCompleted},
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
			":rb":         &types.AttributeValueMemberS{Value: string(responseBody)},
			":ua":         &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":exp":        numberAttr(now.Add(s.ttlWindow).Unix()),
		},
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperr.NewStoreError(s.tableName, "update item (complete)", ErrReservationLost)
		}
		return apperr.NewStoreError(s.tableName, "update item (complete)", err)
	}
	return nil
}

// Release deletes an IN_PROGRESS reservation so the request can be retried.
// A record that is already gone or COMPLETED is left alone.
func (s *DynamoStore) Release(ctx context.Context, key string) error {
	input := &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression:      awsString(releaseCondition),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inprogress": &types.AttributeValueMemberS{Value: StatusInProgress},
		},
	}
	_, err := s.client.DeleteItem(ctx, input)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}
		return apperr.NewStoreError(s.tableName, "delete item (release)", err)
	}
	return nil
}

func isConditionalCheckFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func numberAttr(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

// Helpers
func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
