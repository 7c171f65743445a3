package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/you/ratelink/domain"
)

func setupSQLiteStore(t *testing.T) *SQLiteStoreImpl {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "ratelink.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestSQLiteStoreImpl_SaveAndLoadSession(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	loaded, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.User.ID != "17" || loaded.Token != "bearer-token-17" {
		t.Errorf("unexpected session: %+v token=%s", loaded.User, loaded.Token)
	}
}

func TestSQLiteStoreImpl_SessionIsReplacedWhole(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	replacement := &domain.Session{
		User:  &domain.User{ID: "99", Name: "New", Role: domain.RoleAdmin},
		Token: "bearer-token-99",
	}
	if err := store.SaveSession(ctx, replacement); err != nil {
		t.Fatalf("SaveSession replacement: %v", err)
	}

	loaded, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.User.ID != "99" || loaded.User.Role != domain.RoleAdmin {
		t.Errorf("expected replaced session, got %+v", loaded.User)
	}
}

func TestSQLiteStoreImpl_ClearSession(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.Set(ctx, KeyDeviceID, "device-7"); err != nil {
		t.Fatalf("Set deviceId: %v", err)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, err := store.LoadSession(ctx); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if deviceID, err := store.Get(ctx, KeyDeviceID); err != nil || deviceID != "device-7" {
		t.Fatalf("expected deviceId to survive clear, got %q, %v", deviceID, err)
	}
}

func TestSQLiteStoreImpl_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ratelink.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SaveSession(ctx, testSession()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession after reopen: %v", err)
	}
	if loaded.User.ID != "17" {
		t.Errorf("expected persisted session after reopen, got %+v", loaded.User)
	}
}
