package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Tablas que el esquema del CRM debe tener.
var expectedTables = []string{"leads", "conversations", "messages", "knowledge_entries"}

// Reporte de verificación de la base: existencia de tablas, filas,
// índices y foreign keys. Útil después de correr migraciones o al
// diagnosticar un ambiente nuevo.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL es obligatoria")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("conectar a la base: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping a la base: %v", err)
	}
	fmt.Println("Conexión OK")
	fmt.Println()

	problems := 0
	for _, table := range expectedTables {
		report, err := inspectTable(ctx, pool, table)
		if err != nil {
			log.Fatalf("inspeccionar %s: %v", table, err)
		}
		if !report.Exists {
			fmt.Printf("[FALTA] tabla %s no existe\n", table)
			problems++
			continue
		}
		fmt.Printf("[OK]    %-18s %6d filas, %d índice(s), %d foreign key(s)\n",
			report.Name, report.Rows, report.Indexes, report.ForeignKeys)
	}

	fmt.Println()
	if problems > 0 {
		fmt.Printf("%d problema(s) encontrado(s)\n", problems)
		os.Exit(1)
	}
	fmt.Println("Esquema completo.")
}

type tableReport struct {
	Name        string
	Exists      bool
	Rows        int64
	Indexes     int
	ForeignKeys int
}

func inspectTable(ctx context.Context, pool *pgxpool.Pool, table string) (tableReport, error) {
	report := tableReport{Name: table}

	const existsQuery = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`
	if err := pool.QueryRow(ctx, existsQuery, table).Scan(&report.Exists); err != nil {
		return report, fmt.Errorf("check existence: %w", err)
	}
	if !report.Exists {
		return report, nil
	}

	// El nombre viene de la lista fija de arriba, nunca de input externo.
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&report.Rows); err != nil {
		return report, fmt.Errorf("count rows: %w", err)
	}

	const indexQuery = `SELECT COUNT(*) FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1`
	if err := pool.QueryRow(ctx, indexQuery, table).Scan(&report.Indexes); err != nil {
		return report, fmt.Errorf("count indexes: %w", err)
	}

	const fkQuery = `SELECT COUNT(*) FROM information_schema.table_constraints
		WHERE table_schema = 'public' AND table_name = $1 AND constraint_type = 'FOREIGN KEY'`
	if err := pool.QueryRow(ctx, fkQuery, table).Scan(&report.ForeignKeys); err != nil {
		return report, fmt.Errorf("count foreign keys: %w", err)
	}

	return report, nil
}
