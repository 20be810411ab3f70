/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) Cache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client)
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	setValue := map[string]string{"central": "consortium"}
	require.NoError(t, c.Set(ctx, "settings", setValue, 10*time.Minute))

	var getValue map[string]string
	require.NoError(t, c.Get(ctx, "settings", &getValue))
	assert.Equal(t, setValue, getValue)
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	var getValue map[string]string
	err := c.Get(context.Background(), "nonExistentKey", &getValue)
	assert.ErrorIs(t, err, ErrMiss)
	assert.Empty(t, getValue)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	var got string
	assert.ErrorIs(t, c.Get(ctx, "key", &got), ErrMiss)
	assert.NoError(t, c.Delete(ctx, "nonExistentKey"))
}
