package database

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-alerts/internal/common/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func esResponse(status int) *http.Response {
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	c := &PostgresClient{DB: db}
	assert.NoError(t, c.Ping(context.Background()))

	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer c.Close()

	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "redis", c.Name())
}

func TestElasticsearchClient_Ping(t *testing.T) {
	calls := 0
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return esResponse(http.StatusOK), nil
		}
		return esResponse(http.StatusServiceUnavailable), nil
	})

	c, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{"http://es.local:9200"}}, transport)
	require.NoError(t, err)

	assert.NoError(t, c.Ping(context.Background()))
	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

type stubPinger struct {
	name string
	err  error
}

func (s stubPinger) Name() string                   { return s.name }
func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestCheckAll(t *testing.T) {
	failures := CheckAll(context.Background(), time.Second,
		stubPinger{name: "postgres"},
		stubPinger{name: "redis", err: errors.New("redis ping failed: EOF")},
		nil,
	)

	assert.Len(t, failures, 1)
	assert.Equal(t, "redis ping failed: EOF", failures["redis"])
}
