package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/you/ratelink/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() {
		mr.Close()
	})

	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func testSession() *domain.Session {
	return &domain.Session{
		User: &domain.User{
			ID:           "17",
			Name:         "A. Mehta",
			Phone:        "9876543210",
			Role:         domain.RoleRetailer,
			WholesalerID: "4",
		},
		Token: "bearer-token-17",
	}
}

func TestRedisStoreImpl_SaveAndLoadSession(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	loaded, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Token != "bearer-token-17" {
		t.Errorf("expected token bearer-token-17, got %s", loaded.Token)
	}
	if loaded.User.ID != "17" || loaded.User.Role != domain.RoleRetailer {
		t.Errorf("unexpected user: %+v", loaded.User)
	}
	if loaded.User.WholesalerID != "4" {
		t.Errorf("expected wholesalerId 4, got %s", loaded.User.WholesalerID)
	}

	// The gateway reads the raw token key directly
	token, err := store.Get(ctx, KeyToken)
	if err != nil {
		t.Fatalf("Get token: %v", err)
	}
	if token != "bearer-token-17" {
		t.Errorf("expected raw token key, got %s", token)
	}
}

func TestRedisStoreImpl_LoadSessionEmpty(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.LoadSession(context.Background())
	if err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStoreImpl_LoadSessionCorrupt(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	// A partial write with garbage user JSON reads as corruption
	if err := store.Set(ctx, KeyUser, "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, KeyToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, KeyRole, "RETAILER"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, err := store.LoadSession(ctx)
	if err != domain.ErrStoreCorrupt {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
}

func TestRedisStoreImpl_ClearSession(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	// The device id is not part of the session and must survive logout
	if err := store.Set(ctx, KeyDeviceID, "device-1"); err != nil {
		t.Fatalf("Set deviceId: %v", err)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}

	if _, err := store.LoadSession(ctx); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound after clear, got %v", err)
	}
	if _, err := store.Get(ctx, KeyToken); err != domain.ErrKeyNotFound {
		t.Fatalf("expected token gone after clear, got %v", err)
	}
	deviceID, err := store.Get(ctx, KeyDeviceID)
	if err != nil || deviceID != "device-1" {
		t.Fatalf("expected deviceId to survive clear, got %q, %v", deviceID, err)
	}
}

func TestRedisStoreImpl_GetMissingKey(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "absent")
	if err != domain.ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}
