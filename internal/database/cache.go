package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultCacheTimeout = 2 * time.Second

// CacheBuilder reads and writes one msgpack-encoded value.
//
//	found, err := database.NewCacheBuilder(client, key).WithContext(ctx).Get(&dst)
type CacheBuilder struct {
	client CacheClient
	key    string
	value  any
	ttl    time.Duration
	ctx    context.Context
}

func NewCacheBuilder(client CacheClient, key any) *CacheBuilder {
	return &CacheBuilder{
		client: client,
		key:    fmt.Sprint(key),
		ctx:    context.Background(),
	}
}

func (b *CacheBuilder) WithStruct(value any) *CacheBuilder {
	b.value = value
	return b
}

func (b *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	b.ttl = ttl
	return b
}

func (b *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	if ctx != nil {
		b.ctx = ctx
	}
	return b
}

func (b *CacheBuilder) Key() string {
	return b.key
}

func (b *CacheBuilder) Set() error {
	if b.client == nil {
		return errors.New("cache client is nil")
	}

	payload, err := msgpack.Marshal(b.value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	ctx, cancel := b.context()
	defer cancel()

	set := b.client.B().Set().Key(b.key).Value(valkey.BinaryString(payload))
	if b.ttl > 0 {
		return b.client.Do(ctx, set.PxMilliseconds(b.ttl.Milliseconds()).Build()).Error()
	}
	return b.client.Do(ctx, set.Build()).Error()
}

// Get decodes the stored value into dst. A missing key is (false, nil); a
// payload that does not decode is (false, ErrCorruptPayload).
func (b *CacheBuilder) Get(dst any) (bool, error) {
	if b.client == nil {
		return false, errors.New("cache client is nil")
	}

	ctx, cancel := b.context()
	defer cancel()

	payload, err := b.client.Do(ctx, b.client.B().Get().Key(b.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := msgpack.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptPayload, b.key, err)
	}

	return true, nil
}

func (b *CacheBuilder) Delete() error {
	if b.client == nil {
		return errors.New("cache client is nil")
	}

	ctx, cancel := b.context()
	defer cancel()

	return b.client.Do(ctx, b.client.B().Del().Key(b.key).Build()).Error()
}

func (b *CacheBuilder) context() (context.Context, context.CancelFunc) {
	if _, ok := b.ctx.Deadline(); ok {
		return context.WithCancel(b.ctx)
	}
	return context.WithTimeout(b.ctx, defaultCacheTimeout)
}

var ErrCorruptPayload = errors.New("corrupt cache payload")

// DeleteByPrefix removes every key starting with prefix using SCAN, so it
// never blocks the server the way KEYS would.
func DeleteByPrefix(ctx context.Context, client CacheClient, prefix string) (int, error) {
	if client == nil {
		return 0, errors.New("cache client is nil")
	}

	deleted := 0
	var cursor uint64
	for {
		entry, err := client.Do(ctx, client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(200).Build()).AsScanEntry()
		if err != nil {
			return deleted, err
		}

		if len(entry.Elements) > 0 {
			if err := client.Do(ctx, client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return deleted, err
			}
			deleted += len(entry.Elements)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return deleted, nil
		}
	}
}
