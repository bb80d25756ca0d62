package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/outreach-timeline/internal/pkg/distlock"
)

const lockKey = "outreach-timeline:migrations"

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		n, err := listTables(ctx, db, os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		log.Fatalf("read migrations dir %s: %v", dir, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		log.Fatalf("conn: %v", err)
	}
	defer conn.Close()

	okCount, errCount, err := apply(ctx, conn, files, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

// listTables prints the outreach tables present in the public schema.
func listTables(ctx context.Context, db *sql.DB, out io.Writer) (int, error) {
	rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'outreach_%' ORDER BY tablename")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return n, err
		}
		fmt.Fprintln(out, " ", t)
		n++
	}
	return n, rows.Err()
}

// migrationFiles returns the .sql files of dir in lexical order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs each file in its own transaction while holding the migration
// advisory lock. A failing file is rolled back and the rest still run.
func apply(ctx context.Context, conn *sql.Conn, files []string, out io.Writer) (okCount, errCount int, err error) {
	lock := distlock.NewPGAdvisoryLock(conn, lockKey)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !acquired {
		return 0, 0, fmt.Errorf("another migration run holds the lock")
	}
	defer lock.Release(context.WithoutCancel(ctx))

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return okCount, errCount, fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		fmt.Fprintf(out, "  %s ... ", filepath.Base(path))

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			fmt.Fprintf(out, "BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			tx.Rollback()
			fmt.Fprintf(out, "ERROR: %v\n", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			fmt.Fprintf(out, "COMMIT ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Fprintln(out, "OK")
		okCount++
	}
	return okCount, errCount, nil
}
