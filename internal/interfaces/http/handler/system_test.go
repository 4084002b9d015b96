package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(nil)
	require.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemInfo(t *testing.T) {
	h := NewSystemHandler(nil)
	c, w := testContext(t)

	h.GetSystemInfo(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Debtflow Backend API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemPing(t *testing.T) {
	h := NewSystemHandler(nil)
	c, w := testContext(t)

	h.Ping(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err, "timestamp must be RFC3339")
}

func TestSystemHealthWithoutDatabase(t *testing.T) {
	h := NewSystemHandler(nil)
	c, w := testContext(t)

	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}
