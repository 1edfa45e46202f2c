//go:build integration

package db_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/db"
	"github.com/nativestake/custody-ledger/internal/db/model"
)

var testDB *db.Database

// The integration suite expects a running MongoDB. Connection details come
// from the environment so CI and local runs can point at their own instance.
func testDbConfig() *config.DbConfig {
	cfg := &config.DbConfig{
		Username: os.Getenv("TEST_MONGO_USERNAME"),
		Password: os.Getenv("TEST_MONGO_PASSWORD"),
		Address:  os.Getenv("TEST_MONGO_ADDRESS"),
		DbName:   "custody-ledger-test",
	}
	if cfg.Username == "" {
		cfg.Username = "user"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.Address == "" {
		cfg.Address = "mongodb://localhost:27017"
	}
	return cfg
}

func TestMain(m *testing.M) {
	ctx := context.Background()
	dbConfig := testDbConfig()

	if err := model.Setup(ctx, dbConfig); err != nil {
		log.Fatalf("failed to init mongo database: %v", err)
	}

	var err error
	testDB, err = db.New(ctx, *dbConfig)
	if err != nil {
		log.Fatalf("failed to setup client: %v", err)
	}

	code := m.Run()

	_ = testDB.Shutdown(ctx)
	os.Exit(code)
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	collections := []string{
		model.StakeRequestCollection,
		model.UnstakeRequestCollection,
		model.RewardClaimRequestCollection,
		model.VaultStateCollection,
		model.RewardEntryCollection,
		model.FreezeWindowCollection,
	}
	for _, collection := range collections {
		if err := testDB.ClearCollection(ctx, collection); err != nil {
			t.Fatalf("failed to reset collection %s: %v", collection, err)
		}
	}
}

func TestPing(t *testing.T) {
	if err := testDB.Ping(t.Context()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
