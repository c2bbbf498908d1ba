package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Gateway groups the tables used by the backend.
type Gateway struct {
	db        *bun.DB
	snapshots *Table[*InventorySnapshot]
	threads   *Table[*Thread]
	messages  *Table[*Message]
	profiles  *Table[*UserProfile]
}

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	var db *bun.DB

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())

	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"):
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// in-memory databases live as long as their connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())

	default:
		return nil, fmt.Errorf("unsupported database url %q: expected postgres:// or a sqlite file: dsn", redact(dsn))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// New creates a Gateway over db.
func New(db *bun.DB) *Gateway {
	return &Gateway{
		db: db,
		snapshots: NewTable(db, "inventory_snapshots", repository.ModelHandlers[*InventorySnapshot]{
			NewRecord:     func() *InventorySnapshot { return &InventorySnapshot{} },
			GetID:         func(s *InventorySnapshot) uuid.UUID { return s.ID },
			SetID:         func(s *InventorySnapshot, id uuid.UUID) { s.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		threads: NewTable(db, "threads", repository.ModelHandlers[*Thread]{
			NewRecord:     func() *Thread { return &Thread{} },
			GetID:         func(t *Thread) uuid.UUID { return t.ID },
			SetID:         func(t *Thread, id uuid.UUID) { t.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		messages: NewTable(db, "messages", repository.ModelHandlers[*Message]{
			NewRecord:     func() *Message { return &Message{} },
			GetID:         func(m *Message) uuid.UUID { return m.ID },
			SetID:         func(m *Message, id uuid.UUID) { m.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		profiles: NewTable(db, "user_profiles", repository.ModelHandlers[*UserProfile]{
			NewRecord:     func() *UserProfile { return &UserProfile{} },
			GetID:         func(p *UserProfile) uuid.UUID { return p.ID },
			SetID:         func(p *UserProfile, id uuid.UUID) { p.ID = id },
			GetIdentifier: func() string { return "user_id" },
		}),
	}
}

// DB returns the underlying bun handle.
func (g *Gateway) DB() *bun.DB {
	return g.db
}

// Ping verifies the database connection.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Close releases the database handle.
func (g *Gateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Migrate creates the backend tables when they do not exist.
func (g *Gateway) Migrate(ctx context.Context) error {
	tables := []struct {
		model any
		fk    string
	}{
		{model: (*InventorySnapshot)(nil)},
		{model: (*Thread)(nil)},
		{model: (*Message)(nil), fk: `("thread_id") REFERENCES "threads" ("id") ON DELETE CASCADE`},
		{model: (*UserProfile)(nil)},
	}

	for _, table := range tables {
		q := g.db.NewCreateTable().Model(table.model).IfNotExists()
		if table.fk != "" {
			q = q.ForeignKey(table.fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", table.model, err)
		}
	}
	return nil
}

// redact strips credentials from a DSN before it is logged.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
