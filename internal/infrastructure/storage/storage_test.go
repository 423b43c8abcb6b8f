package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every KeyValueStore must share.
func runStoreContract(t *testing.T, kv KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		value, err := kv.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, value)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, CartKey, []byte(`{"state":{"items":[]}}`)))

		value, err := kv.Get(ctx, CartKey)
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":{"items":[]}}`, string(value))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, TokenKey, []byte("first")))
		require.NoError(t, kv.Put(ctx, TokenKey, []byte("second")))

		value, err := kv.Get(ctx, TokenKey)
		require.NoError(t, err)
		assert.Equal(t, "second", string(value))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, SessionKey, []byte("{}")))
		require.NoError(t, kv.Delete(ctx, SessionKey))

		_, err := kv.Get(ctx, SessionKey)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete missing key", func(t *testing.T) {
		assert.NoError(t, kv.Delete(ctx, "never-written"))
	})
}

// ============================================
// Memory / File
// ============================================

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, kv.Put(ctx, "k", value))
	value[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runStoreContract(t, kv)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, CartKey, []byte("persisted")))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	value, err := second.Get(ctx, CartKey)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(value))
}

func TestFileStore_SanitizesKeys(t *testing.T) {
	kv, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "cart-storage.json", filepath.Base(kv.path(CartKey)))
	assert.Equal(t, ".._.._etc_passwd.json", filepath.Base(kv.path("../../etc/passwd")))
}

// ============================================
// Redis
// ============================================

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	runStoreContract(t, NewRedisStore(client, "test"))
}

func TestRedisStore_KeyPrefixAndNoExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := NewRedisStore(client, "profile-a")
	require.NoError(t, kv.Put(context.Background(), CartKey, []byte("x")))

	assert.True(t, mr.Exists("profile-a:cart-storage"))
	assert.Zero(t, mr.TTL("profile-a:cart-storage"))
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	kv := NewRedisStore(nil, "")
	assert.Equal(t, "storefront:token", kv.redisKey(TokenKey))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	_, err := NewRedisStore(client, "x").Get(context.Background(), CartKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// ============================================
// DynamoDB
// ============================================

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemID(key map[string]types.AttributeValue) string {
	ns := key["namespace"].(*types.AttributeValueMemberS).Value
	k := key["state_key"].(*types.AttributeValueMemberS).Value
	return ns + "|" + k
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemID(params.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemID(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemID(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	runStoreContract(t, NewDynamoStore(newFakeDynamo(), "client_state", "test"))
}

func TestDynamoStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()

	a := NewDynamoStore(fake, "client_state", "a")
	b := NewDynamoStore(fake, "client_state", "b")
	require.NoError(t, a.Put(ctx, CartKey, []byte("a-cart")))

	_, err := b.Get(ctx, CartKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Sealed
// ============================================

func TestSealedStore(t *testing.T) {
	sealed, err := NewSealedStore(context.Background(), NewMemoryStore(), "correct horse battery")
	require.NoError(t, err)
	runStoreContract(t, sealed)
}

func TestSealedStore_CiphertextAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	sealed, err := NewSealedStore(ctx, inner, "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, sealed.Put(ctx, TokenKey, []byte("secret-jwt")))

	raw, err := inner.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-jwt")
}

func TestSealedStore_ReopenWithSamePassphrase(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()

	first, err := NewSealedStore(ctx, inner, "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, TokenKey, []byte("secret-jwt")))

	second, err := NewSealedStore(ctx, inner, "correct horse battery")
	require.NoError(t, err)
	value, err := second.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "secret-jwt", string(value))
}

func TestSealedStore_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()

	first, err := NewSealedStore(ctx, inner, "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, TokenKey, []byte("secret-jwt")))

	other, err := NewSealedStore(ctx, inner, "wrong passphrase!")
	require.NoError(t, err)
	_, err = other.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrSealedValue)
}

func TestSealedStore_TruncatedValue(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	sealed, err := NewSealedStore(ctx, inner, "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, inner.Put(ctx, CartKey, []byte("short")))
	_, err = sealed.Get(ctx, CartKey)
	assert.ErrorIs(t, err, ErrSealedValue)
}

// ============================================
// Postgres (requires TEST_DATABASE_URL)
// ============================================

func TestPostgresStore(t *testing.T) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := ConnectPostgres(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := NewPostgresStore(db, "test-"+t.Name())
	require.NoError(t, kv.EnsureSchema(context.Background()))
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM client_state WHERE namespace = $1", "test-"+t.Name())
	})

	runStoreContract(t, kv)
}
