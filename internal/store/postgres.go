package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createDocumentsTable = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`

// PostgresStore implements Store on a single JSONB table. Equality filters are
// evaluated with the @> containment operator.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the documents table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, createDocumentsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Collection returns a view of the documents table scoped to name.
func (s *PostgresStore) Collection(name string) Collection {
	return &postgresCollection{pool: s.pool, name: name}
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

type postgresCollection struct {
	pool *pgxpool.Pool
	name string
}

func (c *postgresCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	data := clone(doc)
	id := NewID()
	if v, ok := data[IDField]; ok {
		id = IDString(v)
		if !ValidID(id) {
			return "", ErrInvalidID
		}
	}
	delete(data, IDField)

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}

	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`
	if _, err := c.pool.Exec(ctx, query, c.name, id, string(raw)); err != nil {
		return "", fmt.Errorf("inserting into %s: %w", c.name, err)
	}
	return id, nil
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	containment, err := encodeFilter(filter)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, data
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY created_at ASC
		LIMIT 1`

	var id string
	var raw []byte
	err = c.pool.QueryRow(ctx, query, c.name, containment).Scan(&id, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding in %s: %w", c.name, err)
	}
	return decodeRow(id, raw)
}

func (c *postgresCollection) FindByID(ctx context.Context, id string) (Document, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	var raw []byte
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	err := c.pool.QueryRow(ctx, query, c.name, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying %s: %w", c.name, err)
	}
	return decodeRow(id, raw)
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	containment, err := encodeFilter(filter)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, data
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY created_at ASC`

	rows, err := c.pool.Query(ctx, query, c.name, containment)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.name, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", c.name, err)
		}
		doc, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", c.name, err)
	}
	return docs, nil
}

func (c *postgresCollection) UpdateByID(ctx context.Context, id string, set Document) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	fields := clone(set)
	delete(fields, IDField)
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding update: %w", err)
	}

	query := `UPDATE documents SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`
	result, err := c.pool.Exec(ctx, query, c.name, id, string(raw))
	if err != nil {
		return fmt.Errorf("updating %s: %w", c.name, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *postgresCollection) DeleteByID(ctx context.Context, id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	result, err := c.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, c.name, id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", c.name, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeFilter(filter Filter) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("encoding filter: %w", err)
	}
	return string(raw), nil
}

func decodeRow(id string, raw []byte) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	doc[IDField] = id
	return doc, nil
}
