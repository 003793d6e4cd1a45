package storage

import (
	"context"
	"testing"

	"github.com/recyclerie/bascule/internal/model"
)

func TestSQLiteStorage_MappingUpsert(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Vaisselle", "Meubles")
	defer cleanup()
	ctx := context.Background()

	vaisselle, _ := store.GetCategoryByName(ctx, "Vaisselle")
	meubles, _ := store.GetCategoryByName(ctx, "Meubles")

	first := &model.CategoryMapping{
		SourceNormalized: "vaiselle cassée",
		CategoryID:       vaisselle.ID,
		Provider:         model.ProviderFuzzy,
		Confidence:       87.5,
	}
	if err := store.SaveMapping(ctx, first); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	got, err := store.GetMapping(ctx, "vaiselle cassée")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected mapping, got nil")
	}
	if got.CategoryID != vaisselle.ID || got.Provider != model.ProviderFuzzy {
		t.Errorf("Mapping = %+v, want category %d provider fuzzy", got, vaisselle.ID)
	}
	if got.CategoryName != "Vaisselle" {
		t.Errorf("CategoryName = %q, want Vaisselle", got.CategoryName)
	}

	// Re-resolving the same name overwrites, never appends
	second := &model.CategoryMapping{
		SourceNormalized: "vaiselle cassée",
		CategoryID:       meubles.ID,
		Provider:         "mistral",
		Confidence:       62,
	}
	if err := store.SaveMapping(ctx, second); err != nil {
		t.Fatalf("SaveMapping (overwrite) failed: %v", err)
	}

	got, err = store.GetMapping(ctx, "vaiselle cassée")
	if err != nil {
		t.Fatalf("GetMapping after overwrite failed: %v", err)
	}
	if got.CategoryID != meubles.ID || got.Provider != "mistral" {
		t.Errorf("Overwritten mapping = %+v, want category %d provider mistral", got, meubles.ID)
	}

	all, err := store.GetAllMappings(ctx)
	if err != nil {
		t.Fatalf("GetAllMappings failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Got %d mappings, want 1 (overwrite, not append)", len(all))
	}
}

func TestSQLiteStorage_MappingKeyIsNormalized(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Livres")
	defer cleanup()
	ctx := context.Background()

	livres, _ := store.GetCategoryByName(ctx, "Livres")

	if err := store.SaveMapping(ctx, &model.CategoryMapping{
		SourceNormalized: "  LIVRES anciens ",
		CategoryID:       livres.ID,
		Provider:         model.ProviderFuzzy,
		Confidence:       91,
	}); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	// Case and whitespace variants collapse to one entry
	for _, variant := range []string{"livres anciens", "LIVRES ANCIENS", " Livres Anciens "} {
		got, err := store.GetMapping(ctx, variant)
		if err != nil {
			t.Fatalf("GetMapping(%q) failed: %v", variant, err)
		}
		if got == nil {
			t.Errorf("GetMapping(%q) = nil, want hit", variant)
		}
	}
}

func TestSQLiteStorage_MappingConfidenceClamped(t *testing.T) {
	store, cleanup := createTestStorageWithCategories(t, "Textile")
	defer cleanup()
	ctx := context.Background()

	textile, _ := store.GetCategoryByName(ctx, "Textile")

	if err := store.SaveMapping(ctx, &model.CategoryMapping{
		SourceNormalized: "tissus",
		CategoryID:       textile.ID,
		Provider:         "mistral",
		Confidence:       140,
	}); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	got, err := store.GetMapping(ctx, "tissus")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.Confidence != 100 {
		t.Errorf("Confidence = %v, want clamped to 100", got.Confidence)
	}
}

func TestSQLiteStorage_MappingMissReturnsNil(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	got, err := store.GetMapping(context.Background(), "inconnu")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for cache miss, got %+v", got)
	}
}
