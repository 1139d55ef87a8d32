package querycache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDeterministic(t *testing.T) {
	a := map[string]interface{}{"ano": 2021, "porto": "Santos", "filtros": map[string]interface{}{"uf": "SP", "modal": "mar"}}
	b := map[string]interface{}{"filtros": map[string]interface{}{"modal": "mar", "uf": "SP"}, "porto": "Santos", "ano": 2021}

	keyA, err := Key(5, "IND-5.14", "tenant-1", a)
	require.NoError(t, err)
	keyB, err := Key(5, "IND-5.14", "tenant-1", b)
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
}

func TestKeyChangesWithPayload(t *testing.T) {
	base := map[string]interface{}{"ano": 2021, "porto": "Santos"}
	other := map[string]interface{}{"ano": 2022, "porto": "Santos"}

	keyA, err := Key(5, "IND-5.14", "tenant-1", base)
	require.NoError(t, err)
	keyB, err := Key(5, "IND-5.14", "tenant-1", other)
	require.NoError(t, err)

	assert.NotEqual(t, keyA, keyB)
}

func TestKeyScopesTenant(t *testing.T) {
	payload := map[string]interface{}{"ano": 2021}

	keyA, err := Key(1, "IND-1.01", "tenant-1", payload)
	require.NoError(t, err)
	keyB, err := Key(1, "IND-1.01", "tenant-2", payload)
	require.NoError(t, err)
	keyPublic, err := Key(1, "IND-1.01", "", payload)
	require.NoError(t, err)

	assert.NotEqual(t, keyA, keyB)
	assert.Contains(t, keyPublic, ":public:")
}

func TestCacheFailsOpenWhenBackendUnreachable(t *testing.T) {
	// No Redis listens here; every command errors out.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := New(client, time.Minute)

	ctx := context.Background()

	rows, ok := cache.Get(ctx, "cais:1:IND-1.01:public:deadbeef")
	assert.False(t, ok)
	assert.Nil(t, rows)

	// Set must swallow the failure, not return or panic.
	cache.Set(ctx, "cais:1:IND-1.01:public:deadbeef", []map[string]interface{}{{"ano": 2021}})
}
