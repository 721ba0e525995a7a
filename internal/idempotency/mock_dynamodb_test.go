package idempotency

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a very small in-memory idempotency table for unit tests. It
// understands exactly the condition expressions DynamoStore sends.
// NOTE: This is intentionally minimal and not production-grade.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	omitOldItem bool  // behave like a client that ignores ReturnValuesOnConditionCheckFailure
	failWith    error // returned by every call when set

	putCalls    int
	getCalls    int
	updateCalls int
	deleteCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	k := keyOf(params.Item)
	if k == "" {
		return nil, errors.New("missing key")
	}
	if params.ConditionExpression != nil {
		if *params.ConditionExpression != beginCondition {
			return nil, errors.New("unexpected condition: " + *params.ConditionExpression)
		}
		if existing, ok := m.table[k]; ok {
			now := numberOf(params.ExpressionAttributeValues[":now"])
			nowMs := numberOf(params.ExpressionAttributeValues[":now_ms"])
			expired := numberOf(existing["expires_at"]) < now
			staleReservation := stringOf(existing["status"]) == StatusInProgress &&
				existing["in_progress_expires_at"] != nil &&
				numberOf(existing["in_progress_expires_at"]) < nowMs
			if !expired && !staleReservation {
				ccf := &types.ConditionalCheckFailedException{}
				if !m.omitOldItem && params.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
					ccf.Item = copyItem(existing)
				}
				return nil, ccf
			}
		}
	}
	m.table[k] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	item, ok := m.table[keyOf(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	k := keyOf(params.Key)
	item, ok := m.table[k]
	if params.ConditionExpression == nil || *params.ConditionExpression != completeCondition {
		return nil, errors.New("unexpected condition")
	}
	if !ok || stringOf(item["status"]) != StatusInProgress {
		return nil, &types.ConditionalCheckFailedException{}
	}
	// SET #s = :completed, response_body = :rb, updated_at = :ua, #e = :exp REMOVE #ip
	vals := params.ExpressionAttributeValues
	item["status"] = vals[":completed"]
	item["response_body"] = vals[":rb"]
	item["updated_at"] = vals[":ua"]
	item["expires_at"] = vals[":exp"]
	delete(item, "in_progress_expires_at")
	m.table[k] = item
	return &dyn.UpdateItemOutput{}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	k := keyOf(params.Key)
	item, ok := m.table[k]
	if params.ConditionExpression != nil && *params.ConditionExpression == releaseCondition {
		if !ok || stringOf(item["status"]) != StatusInProgress {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	delete(m.table, k)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *simpleMock) status(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.table[key]
	if !ok {
		return ""
	}
	return stringOf(item["status"])
}

func keyOf(item map[string]types.AttributeValue) string {
	return stringOf(item["idempotency_key"])
}

func stringOf(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func numberOf(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// fakeClock is a settable time source shared by stores under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
