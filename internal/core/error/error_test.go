package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrapAndIs(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("load history: %w", New(base, http.StatusBadGateway, RedisErrorMessage))

	assert.ErrorIs(t, err, base)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, "redis operation failed: boom", appErr.Error())
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapRedis(redis.Nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errors.New("conn refused"))))
}

func TestWrapUpstream(t *testing.T) {
	assert.Nil(t, WrapLLM(nil))
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(WrapLLM(context.DeadlineExceeded)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapQdrant(errors.New("unavailable"))))

	// an AppError already in the chain keeps its status
	inner := Validation("message is required")
	assert.Equal(t, http.StatusBadRequest, StatusOf(WrapPostgres(inner)))
}

func TestStatusOfAndPublicMessage(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
	assert.Equal(t, SystemErrorMessage, PublicMessage(errors.New("plain")))
	assert.Equal(t, "session id is required", PublicMessage(Validation("session id is required")))
	assert.Equal(t, StorageErrorMessage, PublicMessage(WrapStorage(errors.New("disk full"))))
}
