package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/redis/go-redis/v9"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
)

const (
	// defaultKeyPrefix namespaces all store keys in Redis to avoid collisions.
	defaultKeyPrefix = "showtracker:"

	operationTimeout = 2 * time.Second
)

func init() {
	Register("redis", newRedisStore)
}

// redisStore implements the Store interface using Redis/Valkey.
//
// Each collection uses 2 Redis keys:
//
//   - {prefix}{collection}:docs: a Hash that stores the documents (field = ID, value = data).
//   - {prefix}{collection}:seq: a counter holding the last ID handed out.
//
// Create and UpdateByID run as Lua scripts so the ID allocation and the existence check
// are atomic with the write. Idempotent operations are retried on transient errors.
type redisStore struct {
	client      *redis.Client
	prefix      string
	logger      Logger
	retryPolicy retrypolicy.RetryPolicy[any]
}

// createDocument atomically allocates the next ID and stores the document under it.
//
// KEYS[1] = docs hash, KEYS[2] = sequence counter
// ARGV[1] = document data
//
// Returns the new ID.
var createDocument = redis.NewScript(`
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], id, ARGV[1])
return id
`)

// updateDocument replaces a document only when it already exists.
//
// KEYS[1] = docs hash
// ARGV[1] = ID, ARGV[2] = document data
//
// Returns 1 when the document was updated, 0 when it does not exist.
var updateDocument = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
    return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

func newRedisStore(cfg ProviderConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Verify connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}

	return &redisStore{
		client:      client,
		prefix:      prefix,
		logger:      cfg.Logger,
		retryPolicy: newRetryPolicy(cfg.MaxRetries, backoff),
	}, nil
}

// newRetryPolicy retries transient backend failures. Misses and caller cancellations are
// never retried.
func newRetryPolicy(maxRetries int, backoff time.Duration) retrypolicy.RetryPolicy[any] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return isTransient(err)
		}).
		WithMaxRetries(maxRetries).
		WithBackoff(backoff, 10*backoff).
		ReturnLastFailure().
		Build()
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.Nil) || errors.Is(err, &apperrors.ErrNotFound{}) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (r *redisStore) docsKey(collection string) string {
	return r.prefix + collection + ":docs"
}

func (r *redisStore) seqKey(collection string) string {
	return r.prefix + collection + ":seq"
}

func (r *redisStore) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, err)
	}
}

// retry runs fn under the retry policy with a per-attempt timeout derived from ctx.
func (r *redisStore) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	return failsafe.With(r.retryPolicy).Run(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, operationTimeout)
		defer cancel()
		return fn(attemptCtx)
	})
}

func (r *redisStore) Get(ctx context.Context, collection string) ([]Document, error) {
	var fields map[string]string
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		fields, err = r.client.HGetAll(ctx, r.docsKey(collection)).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis store Get %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(fields))
	for field, data := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			r.logError("redis store Get skipped a field that is not an ID", err)
			continue
		}
		docs = append(docs, Document{ID: id, Data: []byte(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (r *redisStore) GetByID(ctx context.Context, collection string, id int) (Document, error) {
	var data []byte
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		data, err = r.client.HGet(ctx, r.docsKey(collection), strconv.Itoa(id)).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return Document{}, apperrors.NewNotFoundError(collection, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("redis store GetByID %s/%d: %w", collection, id, err)
	}
	return Document{ID: id, Data: data}, nil
}

// Create is not retried: a lost reply after INCR would otherwise store the document twice.
func (r *redisStore) Create(ctx context.Context, collection string, data []byte) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	id, err := createDocument.Run(ctx, r.client,
		[]string{r.docsKey(collection), r.seqKey(collection)}, data,
	).Int()
	if err != nil {
		return Document{}, fmt.Errorf("redis store Create %s: %w", collection, err)
	}
	return Document{ID: id, Data: data}, nil
}

func (r *redisStore) UpdateByID(ctx context.Context, collection string, id int, data []byte) (Document, error) {
	var updated int
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		updated, err = updateDocument.Run(ctx, r.client,
			[]string{r.docsKey(collection)}, strconv.Itoa(id), data,
		).Int()
		return err
	})
	if err != nil {
		return Document{}, fmt.Errorf("redis store UpdateByID %s/%d: %w", collection, id, err)
	}
	if updated == 0 {
		return Document{}, apperrors.NewNotFoundError(collection, id)
	}
	return Document{ID: id, Data: data}, nil
}

func (r *redisStore) DeleteByID(ctx context.Context, collection string, id int) error {
	var removed int64
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		removed, err = r.client.HDel(ctx, r.docsKey(collection), strconv.Itoa(id)).Result()
		return err
	})
	if err != nil {
		return fmt.Errorf("redis store DeleteByID %s/%d: %w", collection, id, err)
	}
	if removed == 0 {
		return apperrors.NewNotFoundError(collection, id)
	}
	return nil
}

func (r *redisStore) LastID(ctx context.Context, collection string) (int, error) {
	var id int
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		id, err = r.client.Get(ctx, r.seqKey(collection)).Int()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis store LastID %s: %w", collection, err)
	}
	return id, nil
}

func (r *redisStore) Count(ctx context.Context, collection string) (int, error) {
	var n int64
	err := r.retry(ctx, func(ctx context.Context) error {
		var err error
		n, err = r.client.HLen(ctx, r.docsKey(collection)).Result()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("redis store Count %s: %w", collection, err)
	}
	return int(n), nil
}

func (r *redisStore) Reset(ctx context.Context, collection string) error {
	err := r.retry(ctx, func(ctx context.Context) error {
		return r.client.Del(ctx, r.docsKey(collection), r.seqKey(collection)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis store Reset %s: %w", collection, err)
	}
	return nil
}

func (r *redisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
