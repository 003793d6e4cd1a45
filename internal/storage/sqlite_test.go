package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create test storage with a set of active categories.
func createTestStorageWithCategories(t *testing.T, names ...string) (*SQLiteStorage, func()) {
	t.Helper()
	store, cleanup := createTestStorage(t)

	ctx := context.Background()
	for _, name := range names {
		if _, err := store.CreateCategory(ctx, name); err != nil {
			cleanup()
			t.Fatalf("Failed to create category %q: %v", name, err)
		}
	}

	return store, cleanup
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	var version int
	if err := store.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	// Running migrations again must be a no-op
	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("Second migrate failed: %v", err)
	}
}

func TestSQLiteStorage_Categories(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Vaisselle", "Meubles", "Livres")
	defer cleanup()
	ctx := context.Background()

	cats, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("GetCategories failed: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("Got %d categories, want 3", len(cats))
	}

	// Ordered by name
	if cats[0].Name != "Livres" || cats[1].Name != "Meubles" || cats[2].Name != "Vaisselle" {
		t.Errorf("Categories not ordered by name: %v", cats)
	}

	byName, err := store.GetCategoryByName(ctx, "Meubles")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}
	if byName == nil {
		t.Fatal("Expected Meubles to exist")
	}

	byID, err := store.GetCategoryByID(ctx, byName.ID)
	if err != nil {
		t.Fatalf("GetCategoryByID failed: %v", err)
	}
	if byID == nil || byID.Name != "Meubles" {
		t.Errorf("GetCategoryByID = %+v, want Meubles", byID)
	}

	missing, err := store.GetCategoryByID(ctx, 9999)
	if err != nil {
		t.Fatalf("GetCategoryByID for missing id failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing category, got %+v", missing)
	}
}

func TestSQLiteStorage_InactiveCategoryHidden(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Jouets")
	defer cleanup()
	ctx := context.Background()

	cat, err := store.GetCategoryByName(ctx, "Jouets")
	if err != nil || cat == nil {
		t.Fatalf("Setup category lookup failed: %v", err)
	}

	if _, err := store.db.Exec("UPDATE categories SET is_active = 0 WHERE id = ?", cat.ID); err != nil {
		t.Fatalf("Failed to deactivate category: %v", err)
	}

	hidden, err := store.GetCategoryByID(ctx, cat.ID)
	if err != nil {
		t.Fatalf("GetCategoryByID failed: %v", err)
	}
	if hidden != nil {
		t.Errorf("Inactive category should be invisible, got %+v", hidden)
	}

	cats, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("GetCategories failed: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("Expected no active categories, got %d", len(cats))
	}
}

func TestSQLiteStorage_TransactionRollback(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Vaisselle")
	defer cleanup()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	if _, err := tx.CreateCategory(ctx, "Ephemere"); err != nil {
		t.Fatalf("CreateCategory in tx failed: %v", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	cat, err := store.GetCategoryByName(ctx, "Ephemere")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}
	if cat != nil {
		t.Errorf("Rolled-back category is still visible: %+v", cat)
	}
}

func TestSQLiteStorage_NestedTransactionRejected(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.BeginTx(ctx); err == nil {
		t.Error("Expected nested BeginTx to fail")
	}
	if err := tx.Migrate(ctx); err == nil {
		t.Error("Expected Migrate inside tx to fail")
	}
}
