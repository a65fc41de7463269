package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
)

const (
	defaultLockDuration   = 30 * time.Second
	defaultAcquireTimeout = 5 * time.Second
)

var errLockHeld = errors.New("pair lock already held")

// PairLocker serializes symmetric two-document mutations with DynamoDB
// conditional writes. The lock key is order-independent, so concurrent
// mutations touching the same two entities in either order contend on the
// same record. Expired locks are stolen; a TTL attribute cleans up leaks.
type PairLocker struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	LockID     string `dynamodbav:"LockID"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// NewPairLocker creates a DynamoDB-backed pair locker
func NewPairLocker(client *dynamodb.Client, tableName string, logger *zap.Logger) *PairLocker {
	return &PairLocker{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// pairKey is order-independent: pairKey(a,b) == pairKey(b,a)
func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "#" + b
}

// AcquirePair blocks until the pair lock is acquired or the acquire timeout
// elapses. Contention is retried with growing backoff.
func (pl *PairLocker) AcquirePair(ctx context.Context, a, b string) (ports.PairLock, error) {
	key := pairKey(a, b)
	deadline := time.Now().Add(defaultAcquireTimeout)
	retryInterval := 20 * time.Millisecond

	for {
		lock, err := pl.tryAcquire(ctx, key)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout acquiring pair lock for %s", key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (pl *PairLocker) tryAcquire(ctx context.Context, key string) (*PairLock, error) {
	lockID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(defaultLockDuration)

	item, err := attributevalue.MarshalMap(lockRecord{
		PK:         "PAIRLOCK#" + key,
		SK:         "LOCK",
		LockID:     lockID,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  expiresAt.Format(time.RFC3339),
		TTL:        expiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock record: %w", err)
	}

	_, err = pl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(pl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil, errLockHeld
		}
		return nil, fmt.Errorf("failed to acquire pair lock: %w", err)
	}

	pl.logger.Debug("pair lock acquired",
		zap.String("pair", key),
		zap.String("lock_id", lockID),
	)
	return &PairLock{locker: pl, key: key, lockID: lockID}, nil
}

// PairLock is a held pair lock
type PairLock struct {
	locker *PairLocker
	key    string
	lockID string
}

// Release deletes the lock record if this holder still owns it
func (l *PairLock) Release(ctx context.Context) error {
	_, err := l.locker.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.locker.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "PAIRLOCK#" + l.key},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: l.lockID},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			// Expired and stolen; nothing left to release.
			return nil
		}
		return fmt.Errorf("failed to release pair lock: %w", err)
	}
	return nil
}
