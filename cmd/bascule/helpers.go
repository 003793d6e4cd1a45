package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/recyclerie/bascule/internal/config"
	"github.com/recyclerie/bascule/internal/importer"
	"github.com/recyclerie/bascule/internal/llm"
	"github.com/recyclerie/bascule/internal/resolve"
	"github.com/recyclerie/bascule/internal/service"
	"github.com/recyclerie/bascule/internal/storage"
)

// modelsCache is shared by every suggester built in this process.
var modelsCache = llm.NewModelsCache(0)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/bascule/bascule.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initSuggester builds the fallback suggester, or returns nil when no
// provider is configured.
func initSuggester() (service.Suggester, error) {
	cfg := config.LoadLLMConfig()
	if cfg.Provider == "" {
		return nil, nil
	}

	suggester, err := llm.NewSuggester(cfg, modelsCache)
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s suggester: %w", cfg.Provider, err)
	}
	return suggester, nil
}

// initImporter wires storage, resolver and importer from config.
func initImporter(ctx context.Context) (*importer.Importer, service.Storage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	suggester, err := initSuggester()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	resolver := resolve.New(store, suggester, config.LoadResolverConfig())
	imp := importer.New(store, resolver, importer.Options{
		Actor:         viper.GetString("import.actor"),
		ReferenceYear: viper.GetInt("import.reference_year"),
	})

	return imp, store, nil
}
