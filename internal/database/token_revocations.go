package database

import (
	"context"
	"time"
)

const revokedTokenKeyPrefix = "revoked:"

type revokedToken struct {
	RevokedAt time.Time `msgpack:"revokedAt"`
}

// TokenRevocations keeps the ids of logged-out admin tokens until the tokens
// would have expired anyway.
type TokenRevocations struct {
	client CacheClient
	now    func() time.Time
}

func NewTokenRevocations(client CacheClient) *TokenRevocations {
	return &TokenRevocations{client: client, now: time.Now}
}

func (r *TokenRevocations) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	return NewCacheBuilder(r.client, revokedTokenKeyPrefix+id).
		WithStruct(revokedToken{RevokedAt: r.now().UTC()}).
		WithTTL(ttl).
		WithContext(ctx).
		Set()
}

func (r *TokenRevocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	var revoked revokedToken
	return NewCacheBuilder(r.client, revokedTokenKeyPrefix+id).WithContext(ctx).Get(&revoked)
}
