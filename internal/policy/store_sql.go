package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const createTable = `CREATE TABLE IF NOT EXISTS policies (
	name VARCHAR(191) PRIMARY KEY,
	owner TEXT NOT NULL,
	boundaries TEXT NOT NULL,
	world TEXT NOT NULL,
	mode TEXT NOT NULL,
	functions TEXT NOT NULL,
	variables TEXT NOT NULL
)`

// SQLStore keeps one row per policy. List-valued columns hold YAML.
// Supported drivers are sqlite3, mysql and postgres.
type SQLStore struct {
	db           *sql.DB
	driver       string
	defaultWorld string
	logger       *slog.Logger
}

func OpenSQLStore(ctx context.Context, driver, dsn, defaultWorld string, logger *slog.Logger) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported policy store driver %q", driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if driver == "sqlite3" {
		// an in-memory database exists once per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating policies table: %w", err)
	}

	logger.Debug("policy store opened", slog.String("driver", driver))
	return &SQLStore{db: db, driver: driver, defaultWorld: defaultWorld, logger: logger}, nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Load(ctx context.Context, name string) (*Policy, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT name, owner, boundaries, world, mode, functions, variables FROM policies WHERE name = ?`), name)

	var r record
	var boundaries, functions, variables string
	err := row.Scan(&r.Name, &r.Owner, &boundaries, &r.World, &r.Mode, &functions, &variables)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		src  string
		dst  any
	}{
		{"boundaries", boundaries, &r.Boundaries},
		{"functions", functions, &r.Functions},
		{"variables", variables, &r.Variables},
	} {
		if err := yaml.Unmarshal([]byte(col.src), col.dst); err != nil {
			return nil, fmt.Errorf("%w: %s: column %s: %v", ErrMalformedPolicy, name, col.name, err)
		}
	}

	return fromRecord(r, s.defaultWorld, s.logger.With(slog.String("policy", name)))
}

func (s *SQLStore) Save(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r := toRecord(p)

	cols := make([]string, 3)
	for i, v := range []any{r.Boundaries, r.Functions, r.Variables} {
		data, err := yaml.MarshalWithOptions(v, yaml.Flow(true))
		if err != nil {
			return fmt.Errorf("encoding policy %s: %w", p.Name, err)
		}
		cols[i] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM policies WHERE name = ?`), r.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO policies (name, owner, boundaries, world, mode, functions, variables) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.Name, r.Owner, cols[0], r.World, r.Mode, cols[1], cols[2]); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM policies WHERE name = ?`), name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM policies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
