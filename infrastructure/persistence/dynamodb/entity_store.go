package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	apperrors "clipstream-backend/pkg/errors"
)

const (
	skMetadata = "METADATA"
	gsi1Name   = "GSI1"

	maxRetries   = 3
	retryBackoff = 50 * time.Millisecond
)

// setFields names the document fields stored as DynamoDB string sets per
// collection, so ADD and DELETE set operations apply to them.
var setFields = map[string]map[string]bool{
	ports.CollectionUsers: {
		"followers":             true,
		"following":             true,
		"friends":               true,
		"pendingFriendRequests": true,
	},
	ports.CollectionVideos: {
		"likedBy":  true,
		"savedBy":  true,
		"sharedBy": true,
	},
}

// EntityStore implements ports.EntityStore over a single DynamoDB table.
// Layout: PK = "<COLLECTION>#<id>", SK = "METADATA". GSI1 partitions items by
// collection for listing queries. String sets are stored as native SS
// attributes; an absent attribute reads as the empty set.
type EntityStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewEntityStore creates a DynamoDB-backed entity store
func NewEntityStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *EntityStore {
	return &EntityStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func partitionKey(collection, id string) string {
	return strings.ToUpper(collection) + "#" + id
}

func resourceName(collection string) string {
	return strings.TrimSuffix(collection, "s")
}

func isSetField(collection, field string) bool {
	return setFields[collection][field]
}

// retryable reports whether the error is a transient capacity failure
func retryable(err error) bool {
	var throttled *types.ProvisionedThroughputExceededException
	return errors.As(err, &throttled)
}

// withRetry runs op with bounded exponential backoff on throttling
func (s *EntityStore) withRetry(ctx context.Context, op func() error) error {
	var err error
	backoff := retryBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = op(); err == nil || !retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// Get returns the document with the given id
func (s *EntityStore) Get(ctx context.Context, collection, id string) (ports.Document, error) {
	var out *dynamodb.GetItemOutput
	err := s.withRetry(ctx, func() error {
		var opErr error
		out, opErr = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key:       itemKey(collection, id),
		})
		return opErr
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError(resourceName(collection))
	}
	return itemToDocument(out.Item), nil
}

// Create persists a new document, failing with a conflict if the id exists
func (s *EntityStore) Create(ctx context.Context, collection string, doc ports.Document) (ports.Document, error) {
	id, _ := doc["id"].(string)
	if id == "" {
		return nil, apperrors.NewValidationError("document requires an id")
	}

	item, err := documentToItem(collection, id, doc)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode document").WithCause(err)
	}

	err = s.withRetry(ctx, func() error {
		_, opErr := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("%s already exists", resourceName(collection)))
		}
		return nil, apperrors.NewDatabaseError("create", err)
	}
	return doc, nil
}

// UpdateFields applies a partial patch to an existing document
func (s *EntityStore) UpdateFields(ctx context.Context, collection, id string, patch ports.Document) (ports.Document, error) {
	if len(patch) == 0 {
		return s.Get(ctx, collection, id)
	}

	names := make(map[string]string, len(patch))
	values := make(map[string]types.AttributeValue, len(patch))
	assignments := make([]string, 0, len(patch))
	i := 0
	for field, value := range patch {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := toAttributeValue(value)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to encode patch value").WithCause(err)
		}
		names[nameKey] = field
		values[valueKey] = av
		assignments = append(assignments, nameKey+" = "+valueKey)
		i++
	}

	var out *dynamodb.UpdateItemOutput
	err := s.withRetry(ctx, func() error {
		var opErr error
		out, opErr = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       itemKey(collection, id),
			UpdateExpression:          aws.String("SET " + strings.Join(assignments, ", ")),
			ConditionExpression:       aws.String("attribute_exists(PK)"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ReturnValues:              types.ReturnValueAllNew,
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil, apperrors.NewNotFoundError(resourceName(collection))
		}
		return nil, apperrors.NewDatabaseError("update", err)
	}
	return itemToDocument(out.Attributes), nil
}

// AtomicAddToSet inserts value into a string-set field only if absent.
// The paired counter, when named, moves in the same UpdateItem call.
func (s *EntityStore) AtomicAddToSet(ctx context.Context, collection, id, field, value, counter string) (bool, error) {
	update := "ADD #f :member"
	names := map[string]string{"#f": field}
	values := map[string]types.AttributeValue{
		":member": &types.AttributeValueMemberSS{Value: []string{value}},
		":value":  &types.AttributeValueMemberS{Value: value},
	}
	if counter != "" {
		update = "ADD #f :member, #c :one"
		names["#c"] = counter
		values[":one"] = &types.AttributeValueMemberN{Value: "1"}
	}

	err := s.withRetry(ctx, func() error {
		_, opErr := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(s.tableName),
			Key:              itemKey(collection, id),
			UpdateExpression: aws.String(update),
			ConditionExpression: aws.String(
				"attribute_exists(PK) AND (attribute_not_exists(#f) OR NOT contains(#f, :value))"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return false, nil
		}
		return false, apperrors.NewDatabaseError("add_to_set", err)
	}
	return true, nil
}

// AtomicRemoveFromSet removes value from a string-set field. The paired
// counter, when named, moves in the same UpdateItem call; the membership
// condition keeps it from going below zero while set and counter agree.
func (s *EntityStore) AtomicRemoveFromSet(ctx context.Context, collection, id, field, value, counter string) (bool, error) {
	update := "DELETE #f :member"
	names := map[string]string{"#f": field}
	values := map[string]types.AttributeValue{
		":member": &types.AttributeValueMemberSS{Value: []string{value}},
		":value":  &types.AttributeValueMemberS{Value: value},
	}
	if counter != "" {
		update = "DELETE #f :member ADD #c :negone"
		names["#c"] = counter
		values[":negone"] = &types.AttributeValueMemberN{Value: "-1"}
	}

	err := s.withRetry(ctx, func() error {
		_, opErr := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       itemKey(collection, id),
			UpdateExpression:          aws.String(update),
			ConditionExpression:       aws.String("attribute_exists(PK) AND contains(#f, :value)"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return false, nil
		}
		return false, apperrors.NewDatabaseError("remove_from_set", err)
	}
	return true, nil
}

// AtomicIncrementAndAddToSet bumps counter and merges value into a string
// set in one write. The counter moves even when the value is already a
// member, which is what share totals need: every share counts, while the
// set keeps distinct sharers.
func (s *EntityStore) AtomicIncrementAndAddToSet(ctx context.Context, collection, id, counter, field, value string) (int64, error) {
	var out *dynamodb.UpdateItemOutput
	err := s.withRetry(ctx, func() error {
		var opErr error
		out, opErr = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.tableName),
			Key:                 itemKey(collection, id),
			UpdateExpression:    aws.String("ADD #c :one, #f :member"),
			ConditionExpression: aws.String("attribute_exists(PK)"),
			ExpressionAttributeNames: map[string]string{
				"#c": counter,
				"#f": field,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one":    &types.AttributeValueMemberN{Value: "1"},
				":member": &types.AttributeValueMemberSS{Value: []string{value}},
			},
			ReturnValues: types.ReturnValueUpdatedNew,
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return 0, apperrors.NewNotFoundError(resourceName(collection))
		}
		return 0, apperrors.NewDatabaseError("increment_and_add_to_set", err)
	}

	if n, ok := out.Attributes[counter].(*types.AttributeValueMemberN); ok {
		value, _ := strconv.ParseInt(n.Value, 10, 64)
		return value, nil
	}
	return 0, nil
}

// AtomicIncrement adjusts a numeric field and returns the new value.
// The document is created on first increment when no floor is given, which
// is how per-conversation sequence counters bootstrap.
func (s *EntityStore) AtomicIncrement(ctx context.Context, collection, id, field string, delta int, floor *int) (int64, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              itemKey(collection, id),
		UpdateExpression: aws.String("SET #f = if_not_exists(#f, :zero) + :delta"),
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
			":zero":  &types.AttributeValueMemberN{Value: "0"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if floor != nil {
		// The write must not take the field below the floor.
		input.ConditionExpression = aws.String("attribute_exists(PK) AND if_not_exists(#f, :zero) >= :min")
		input.ExpressionAttributeValues[":min"] =
			&types.AttributeValueMemberN{Value: strconv.Itoa(*floor - delta)}
	}

	var out *dynamodb.UpdateItemOutput
	err := s.withRetry(ctx, func() error {
		var opErr error
		out, opErr = s.client.UpdateItem(ctx, input)
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return s.currentNumber(ctx, collection, id, field)
		}
		return 0, apperrors.NewDatabaseError("increment", err)
	}

	if n, ok := out.Attributes[field].(*types.AttributeValueMemberN); ok {
		value, _ := strconv.ParseInt(n.Value, 10, 64)
		return value, nil
	}
	return 0, nil
}

func (s *EntityStore) currentNumber(ctx context.Context, collection, id, field string) (int64, error) {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return 0, err
	}
	switch n := doc[field].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, nil
	}
}

// AtomicAppendToList appends a value to a list field. The paired counter,
// when named, is bumped in the same UpdateItem call.
func (s *EntityStore) AtomicAppendToList(ctx context.Context, collection, id, field string, value interface{}, counter string) error {
	av, err := toAttributeValue(value)
	if err != nil {
		return apperrors.NewInternalError("failed to encode list value").WithCause(err)
	}

	update := "SET #f = list_append(if_not_exists(#f, :empty), :item)"
	names := map[string]string{"#f": field}
	values := map[string]types.AttributeValue{
		":item":  &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
		":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
	}
	if counter != "" {
		update += " ADD #c :one"
		names["#c"] = counter
		values[":one"] = &types.AttributeValueMemberN{Value: "1"}
	}

	err = s.withRetry(ctx, func() error {
		_, opErr := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       itemKey(collection, id),
			UpdateExpression:          aws.String(update),
			ConditionExpression:       aws.String("attribute_exists(PK)"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		return opErr
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return apperrors.NewNotFoundError(resourceName(collection))
		}
		return apperrors.NewDatabaseError("append_to_list", err)
	}
	return nil
}

// Query returns matching documents ordered by sort within the page window.
// Items are fetched from the collection partition on GSI1 with the equality
// filter pushed down, then sorted and windowed here since the sort field is
// arbitrary.
func (s *EntityStore) Query(ctx context.Context, collection string, filter ports.Filter, sortBy ports.Sort, page ports.Page) ([]ports.Document, error) {
	docs, err := s.queryCollection(ctx, collection, filter)
	if err != nil {
		return nil, err
	}

	if sortBy.Field != "" {
		sortDocuments(docs, sortBy)
	}

	if page.Offset >= len(docs) {
		return []ports.Document{}, nil
	}
	docs = docs[page.Offset:]
	if page.Limit > 0 && page.Limit < len(docs) {
		docs = docs[:page.Limit]
	}
	return docs, nil
}

// Count returns the number of documents matching the filter
func (s *EntityStore) Count(ctx context.Context, collection string, filter ports.Filter) (int, error) {
	docs, err := s.queryCollection(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *EntityStore) queryCollection(ctx context.Context, collection string, filter ports.Filter) ([]ports.Document, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(strings.ToUpper(collection)))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	if len(filter) > 0 {
		var cond expression.ConditionBuilder
		first := true
		for field, value := range filter {
			clause := expression.Name(field).Equal(expression.Value(value))
			if first {
				cond = clause
				first = false
			} else {
				cond = cond.And(clause)
			}
		}
		builder = builder.WithFilter(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var docs []ports.Document
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		var out *dynamodb.QueryOutput
		err := s.withRetry(ctx, func() error {
			var opErr error
			out, opErr = paginator.NextPage(ctx)
			return opErr
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("query", err)
		}
		for _, item := range out.Items {
			docs = append(docs, itemToDocument(item))
		}
	}
	return docs, nil
}

func sortDocuments(docs []ports.Document, by ports.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		less := compareValues(docs[i][by.Field], docs[j][by.Field]) < 0
		if by.Ascending {
			return less
		}
		return !less
	})
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case int64:
		bn := int64(0)
		switch bv := b.(type) {
		case int64:
			bn = bv
		case float64:
			bn = int64(bv)
		}
		switch {
		case av < bn:
			return -1
		case av > bn:
			return 1
		default:
			return 0
		}
	case float64:
		bn := float64(0)
		switch bv := b.(type) {
		case float64:
			bn = bv
		case int64:
			bn = float64(bv)
		}
		switch {
		case av < bn:
			return -1
		case av > bn:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
