// seed carga el maestro de productos y bodegas desde CSV hacia PostgreSQL.
//
// Uso: go run ./cmd/seed [directorio]
// Por defecto usa CATALOG_DIR. El directorio debe contener products.csv y/o warehouses.csv;
// CATALOG_CHARSET=iso-8859-1 para listados exportados en Latin-1.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/catalogcsv"
	"github.com/jhoicas/dispensario-api/internal/infrastructure/postgres"
	"github.com/jhoicas/dispensario-api/pkg/config"
	"github.com/jhoicas/dispensario-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	dir := cfg.Catalog.Dir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Uso: seed <directorio> (o CATALOG_DIR)")
		os.Exit(2)
	}

	cat, err := catalogcsv.LoadDir(dir, cfg.Catalog.Charset)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("leer catálogo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Todo o nada.
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		warehouses := postgres.NewWarehouseRepository(tx)
		for i := range cat.Warehouses {
			if err := warehouses.Upsert(ctx, &cat.Warehouses[i]); err != nil {
				return fmt.Errorf("bodega %s: %w", cat.Warehouses[i].ID, err)
			}
		}
		products := postgres.NewProductRepository(tx)
		for i := range cat.Products {
			if err := products.Upsert(ctx, &cat.Products[i]); err != nil {
				return fmt.Errorf("producto %s: %w", cat.Products[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cargar catálogo")
	}

	log.Info().
		Int("products", len(cat.Products)).
		Int("warehouses", len(cat.Warehouses)).
		Msg("catálogo cargado")
}
