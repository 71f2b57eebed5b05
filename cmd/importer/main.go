package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/grupomeridio/pricedesk-backend/internal/refdata"
	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/db"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
)

// importer loads reference data snapshots (clients, products, discount rules)
// from CSV files into the database, same semantics as the admin import
// endpoints.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "importer"})

	_ = godotenv.Load()

	clientsPath := flag.String("clients", "", "path to clients CSV")
	productsPath := flag.String("products", "", "path to products CSV")
	rulesPath := flag.String("rules", "", "path to discount rules CSV")
	flag.Parse()

	if *clientsPath == "" && *productsPath == "" && *rulesPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to import: pass -clients, -products and/or -rules")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "importer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	svc, err := refdata.NewService(refdata.NewRepository(dbClient.DB()), dbClient, nil)
	requireResource(ctx, logg, "refdata service", err)

	type step struct {
		name string
		path string
		do   func(context.Context, *os.File) (*refdata.ImportSummary, error)
	}
	steps := []step{
		{name: "clients", path: *clientsPath, do: func(ctx context.Context, f *os.File) (*refdata.ImportSummary, error) {
			return svc.ImportClients(ctx, f)
		}},
		{name: "products", path: *productsPath, do: func(ctx context.Context, f *os.File) (*refdata.ImportSummary, error) {
			return svc.ImportProducts(ctx, f)
		}},
		{name: "rules", path: *rulesPath, do: func(ctx context.Context, f *os.File) (*refdata.ImportSummary, error) {
			return svc.ImportRules(ctx, f)
		}},
	}

	for _, s := range steps {
		if s.path == "" {
			continue
		}
		file, err := os.Open(s.path)
		requireResource(ctx, logg, s.name+" file", err)

		summary, err := s.do(ctx, file)
		file.Close()
		if err != nil {
			logg.Error(ctx, "import failed: "+s.name, err)
			os.Exit(1)
		}

		stepCtx := logg.WithFields(ctx, map[string]any{
			"dataset":  s.name,
			"imported": summary.Imported,
			"skipped":  summary.Skipped,
			"issues":   len(summary.Issues),
		})
		logg.Info(stepCtx, "import finished")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
