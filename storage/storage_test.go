/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/stretchr/testify/assert"
)

// testStore runs the behaviour every store shares.
func testStore(t *testing.T, store types.ValueStore) {
	ctx := context.Background()
	key := "instance-" + time.Now().Format("150405.000000")

	_, err := store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Nil(t, store.Save(ctx, key, []byte(`{"color":"red"}`)))
	data, err := store.Load(ctx, key)
	assert.Nil(t, err)
	assert.Equal(t, `{"color":"red"}`, string(data))

	assert.Nil(t, store.Save(ctx, key, []byte(`{"color":"blue"}`)))
	data, err = store.Load(ctx, key)
	assert.Nil(t, err)
	assert.Equal(t, `{"color":"blue"}`, string(data))

	assert.Nil(t, store.Delete(ctx, key))
	assert.Nil(t, store.Delete(ctx, key))
	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store, err := New(Memory, nil)
	assert.Nil(t, err)
	defer store.Close()
	testStore(t, store)

	t.Run("copies", func(t *testing.T) {
		ctx := context.Background()
		data := []byte(`{"a":1}`)
		assert.Nil(t, store.Save(ctx, "k", data))
		data[2] = 'b'
		loaded, _ := store.Load(ctx, "k")
		assert.Equal(t, `{"a":1}`, string(loaded))
		loaded[2] = 'c'
		again, _ := store.Load(ctx, "k")
		assert.Equal(t, `{"a":1}`, string(again))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, store.Save(ctx, "k", []byte("{}")), context.Canceled)
		_, err := store.Load(ctx, "k")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStoreTTL(t *testing.T) {
	store, err := New(Memory, map[string]any{"ttl": "20ms", "gcInterval": "5ms"})
	assert.Nil(t, err)
	defer store.Close()
	memory := store.(*MemoryStore)
	assert.Equal(t, 20*time.Millisecond, memory.ttl)

	ctx := context.Background()
	assert.Nil(t, store.Save(ctx, "short", []byte("{}")))
	_, err = store.Load(ctx, "short")
	assert.Nil(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = store.Load(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, memory.Len())
}

func TestNew(t *testing.T) {
	_, err := New("etcd", nil)
	assert.NotNil(t, err)

	store, err := New("", map[string]any{"ttl": 90})
	assert.Nil(t, err)
	assert.Equal(t, 90*time.Second, store.(*MemoryStore).ttl)

	store, err = New(Memory, map[string]any{"ttl": 1.5})
	assert.Nil(t, err)
	assert.Equal(t, 1500*time.Millisecond, store.(*MemoryStore).ttl)

	_, err = New(Memory, map[string]any{"ttl": "soon"})
	assert.NotNil(t, err)

	_, err = New(SQL, map[string]any{"driverName": Postgres})
	assert.Equal(t, "storage: dsn can not be empty", err.Error())

	assert.Equal(t, "funnel:values:abc", Key("abc"))
}

func TestSQLStoreConfig(t *testing.T) {
	db, err := sql.Open(MySQL, "root:root@tcp(127.0.0.1:1)/test")
	assert.Nil(t, err)
	defer db.Close()

	_, err = NewSQLStoreWithDB(db, MySQL, "values; drop table users")
	assert.Equal(t, `storage: invalid table name "values; drop table users"`, err.Error())

	_, err = NewSQLStoreWithDB(db, "sqlite3", "")
	assert.Equal(t, `storage: unsupported sql driver "sqlite3"`, err.Error())
}

func TestSQLStore(t *testing.T) {
	for _, driver := range []string{MySQL, Postgres} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			dsn := os.Getenv("FUNNEL_TEST_" + map[string]string{MySQL: "MYSQL", Postgres: "POSTGRES"}[driver] + "_DSN")
			if dsn == "" {
				t.Skip("no " + driver + " server configured")
			}
			store, err := New(SQL, map[string]any{
				"driverName": driver,
				"dsn":        dsn,
				"table":      "funnel_values_test",
				"poolSize":   2,
			})
			assert.Nil(t, err)
			defer store.Close()
			testStore(t, store)
		})
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("FUNNEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("no redis server configured")
	}
	store, err := New(Redis, map[string]any{"server": addr, "ttl": "1m"})
	assert.Nil(t, err)
	defer store.Close()
	testStore(t, store)
}
