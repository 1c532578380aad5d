package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

func setupTestSchemaCache(t *testing.T, ttl time.Duration) (*SchemaCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewSchemaCache(NewRedisCacheFromClient(client), ttl), mr
}

func TestSchemaCache_SetGet(t *testing.T) {
	cache, _ := setupTestSchemaCache(t, time.Hour)
	ctx := testContext(t)

	schema := &models.FormSchema{
		ID:  "schema-1",
		URL: "https://jobs.example.com/apply",
		Fields: []models.FormField{
			{Selector: "[name='email']", Name: "email", HTMLType: "email", FieldType: types.FieldEmail, Required: true},
		},
		CaptchaType:    types.CaptchaNone,
		SubmitSelector: models.DefaultSubmitSelector,
	}
	require.NoError(t, cache.Set(ctx, schema))

	got, found, err := cache.Get(ctx, "https://jobs.example.com/apply")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, schema.ID, got.ID)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, types.FieldEmail, got.Fields[0].FieldType)
}

func TestSchemaCache_Miss(t *testing.T) {
	cache, _ := setupTestSchemaCache(t, time.Hour)
	ctx := testContext(t)

	got, found, err := cache.Get(ctx, "https://never-seen.example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestSchemaCache_Expiry(t *testing.T) {
	cache, mr := setupTestSchemaCache(t, time.Minute)
	ctx := testContext(t)

	schema := &models.FormSchema{ID: "schema-1", URL: "https://jobs.example.com/apply"}
	require.NoError(t, cache.Set(ctx, schema))

	mr.FastForward(2 * time.Minute)

	_, found, err := cache.Get(ctx, "https://jobs.example.com/apply")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSchemaCache_Invalidate(t *testing.T) {
	cache, _ := setupTestSchemaCache(t, time.Hour)
	ctx := testContext(t)

	schema := &models.FormSchema{ID: "schema-1", URL: "https://jobs.example.com/apply"}
	require.NoError(t, cache.Set(ctx, schema))
	require.NoError(t, cache.Invalidate(ctx, schema.URL))

	_, found, err := cache.Get(ctx, schema.URL)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSchemaCache_KeyIsCaseInsensitive(t *testing.T) {
	cache, _ := setupTestSchemaCache(t, time.Hour)

	assert.Equal(t,
		cache.Key("https://Jobs.Example.com/Apply"),
		cache.Key("https://jobs.example.com/apply"),
	)
}
