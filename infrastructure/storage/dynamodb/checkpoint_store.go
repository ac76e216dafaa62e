package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// API is the subset of the DynamoDB client used by the store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// checkpointItem represents a checkpoint in DynamoDB.
type checkpointItem struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

// CheckpointStore is a DynamoDB-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	api          API
	tableName    string
	queryTimeout time.Duration
	now          func() time.Time
}

// NewCheckpointStore creates a store from a configured client.
func NewCheckpointStore(client *Client) *CheckpointStore {
	return NewCheckpointStoreFromAPI(client.DynamoDB(), client.config.TableName, client.config.QueryTimeout)
}

// NewCheckpointStoreFromAPI creates a store on any implementation of API.
func NewCheckpointStoreFromAPI(api API, tableName string, queryTimeout time.Duration) *CheckpointStore {
	if queryTimeout <= 0 {
		queryTimeout = DefaultConfig().QueryTimeout
	}
	return &CheckpointStore{
		api:          api,
		tableName:    tableName,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

// Put stores value under key.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := s.now()
	item := checkpointItem{
		Key:       key,
		Value:     value,
		UpdatedAt: now.Unix(),
	}
	if opts.TTL > 0 {
		item.ExpiresAt = now.Add(opts.TTL).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return wrapError(err)
}

// Fetch returns the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if result.Item == nil {
		return nil, checkpoint.ErrNotFound
	}

	var item checkpointItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, errors.Join(checkpoint.ErrCorrupt, err)
	}

	// DynamoDB deletes expired items lazily.
	if item.ExpiresAt > 0 && s.now().Unix() >= item.ExpiresAt {
		return nil, checkpoint.ErrNotFound
	}
	return item.Value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyOf(key),
	})
	return wrapError(err)
}

// wrapError wraps DynamoDB errors with domain errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(checkpoint.ErrOperationTimeout, err)
	}

	return errors.Join(checkpoint.ErrConnectionFailed, err)
}

var (
	_ checkpoint.Store = (*CheckpointStore)(nil)
	_ API              = (*dynamodb.Client)(nil)
)
