package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeviceRegistrarImpl_RegisterGeneratesStableID(t *testing.T) {
	var tokens []string
	gw, store, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req registerDeviceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tokens = append(tokens, req.Token)
		w.Write([]byte(`{}`))
	}))

	registrar := NewDeviceRegistrar(gw, store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, registrar.Register(ctx, "17"))
	require.NoError(t, registrar.Register(ctx, "17"))

	require.Len(t, tokens, 2)
	assert.NotEmpty(t, tokens[0])
	assert.Equal(t, tokens[0], tokens[1], "device id must be stable across registrations")

	stored, err := store.Get(ctx, deviceIDKey)
	require.NoError(t, err)
	assert.Equal(t, tokens[0], stored)
}

func TestDeviceRegistrarImpl_Clear(t *testing.T) {
	var gotUserID string
	gw, store, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clear-device-token", r.URL.Path)
		var req clearDeviceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotUserID = req.UserID
		w.Write([]byte(`{}`))
	}))

	registrar := NewDeviceRegistrar(gw, store, zap.NewNop())
	require.NoError(t, registrar.Clear(context.Background(), "17"))
	assert.Equal(t, "17", gotUserID)
}
