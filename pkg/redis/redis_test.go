package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedClient(t *testing.T) (*Client, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return &Client{Client: db}, mock
}

func TestSetWithExpiration(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectSet("session:abc", "value", time.Minute).SetVal("OK")

	err := client.SetWithExpiration(context.Background(), "session:abc", "value", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetString(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectGet("session:abc").SetVal("value")

	got, err := client.GetString(context.Background(), "session:abc")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectDel("a", "b").SetVal(2)

	err := client.Delete(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectExists("present").SetVal(1)
	mock.ExpectExists("absent").SetVal(0)

	ok, err := client.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
