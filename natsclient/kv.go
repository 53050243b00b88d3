package natsclient

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/fileingest/errors"
)

// ErrKVKeyNotFound indicates the requested key does not exist in the bucket
var ErrKVKeyNotFound = stderrors.New("kv: key not found")

// KVOptions configures KV operation behavior
type KVOptions struct {
	Timeout time.Duration
}

// DefaultKVOptions returns the default per-operation timeout
func DefaultKVOptions() KVOptions {
	return KVOptions{Timeout: 5 * time.Second}
}

// KVStore wraps a JetStream key-value bucket with per-operation timeouts and
// normalized not-found errors. It satisfies the registry's KV interface.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
}

// KVStore creates a store over an existing bucket
func (c *Client) KVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &KVStore{bucket: bucket, options: options}
}

// EnsureBucket gets the named bucket, creating it if absent
func (c *Client) EnsureBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, name)
	if err == nil {
		return bucket, nil
	}

	bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
	if err != nil {
		// Lost a create race; the bucket exists now
		if isAlreadyExistsError(err) {
			bucket, err = js.KeyValue(ctx, name)
			if err != nil {
				return nil, errors.WrapTransient(err, "Client", "EnsureBucket",
					"access existing bucket "+name)
			}
			return bucket, nil
		}
		return nil, errors.WrapTransient(err, "Client", "EnsureBucket", "create bucket "+name)
	}

	return bucket, nil
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// Get retrieves the value stored under a key
func (kv *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if isKVNotFoundError(err) {
			return nil, ErrKVKeyNotFound
		}
		return nil, errors.WrapTransient(err, "KVStore", "Get", "get "+key)
	}
	return entry.Value(), nil
}

// Put creates or updates a key, last writer wins
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if _, err := kv.bucket.Put(ctx, key, value); err != nil {
		return errors.WrapTransient(err, "KVStore", "Put", "put "+key)
	}
	return nil
}

// Keys lists every key in the bucket. An empty bucket yields no keys and no
// error.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if isKVNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "KVStore", "Keys", "list keys")
	}
	return keys, nil
}

// Delete removes a key from the bucket
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if isKVNotFoundError(err) {
			return ErrKVKeyNotFound
		}
		return errors.WrapTransient(err, "KVStore", "Delete", "delete "+key)
	}
	return nil
}

// IsNotFound reports whether an error indicates a missing key
func (kv *KVStore) IsNotFound(err error) bool {
	return isKVNotFoundError(err)
}

func isKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrKVKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyNotFound) ||
		stderrors.Is(err, jetstream.ErrNoKeysFound) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "key not found") ||
		strings.Contains(errMsg, "no keys found") ||
		strings.Contains(errMsg, "10037")
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "bucket name already in use") ||
		strings.Contains(errMsg, "already exists") ||
		strings.Contains(errMsg, "stream name already in use")
}
