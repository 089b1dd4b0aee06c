package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type documentRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Data       []byte `db:"data"`
}

func (r documentRow) document() *Document {
	return &Document{Collection: r.Collection, ID: r.ID, Data: json.RawMessage(r.Data)}
}

// PostgresStore implements DocumentStore on a single jsonb table.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logging.LoggerV2
}

// NewPostgresStore creates a document store over db. Migrate must have been
// run against the same database.
func NewPostgresStore(db *sqlx.DB, logger *logging.LoggerV2) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Migrate brings the documents schema up to date.
func Migrate(db *sqlx.DB, dbName string, logger *logging.LoggerV2) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migration instance: %w", err)
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Migrations applied")
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `SELECT collection, id, data FROM documents WHERE collection = $1 AND id = $2`

	var row documentRow
	err := s.db.GetContext(ctx, &row, query, collection, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to get document", logging.Fields{
			"collection": collection,
			"id":         id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return row.document(), nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]*Document, error) {
	query := `SELECT collection, id, data FROM documents WHERE collection = $1 ORDER BY seq`

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, collection); err != nil {
		s.logger.Error("Failed to list documents", logging.Fields{
			"collection": collection,
			"error":      err.Error(),
		})
		return nil, err
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs, nil
}

const upsertQuery = `
	INSERT INTO documents (collection, id, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (collection, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	if _, err := s.db.ExecContext(ctx, upsertQuery, collection, id, []byte(data)); err != nil {
		s.logger.Error("Failed to set document", logging.Fields{
			"collection": collection,
			"id":         id,
			"error":      err.Error(),
		})
		return err
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, collection, id string, data json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, insertQuery, collection, id, []byte(data))
	return insertResult(res, err)
}

const insertQuery = `
	INSERT INTO documents (collection, id, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (collection, id) DO NOTHING
`

func insertResult(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := NewID()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		s.logger.Error("Failed to delete document", logging.Fields{
			"collection": collection,
			"id":         id,
			"error":      err.Error(),
		})
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Batch(ctx context.Context, writes ...Write) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, w := range writes {
			var err error
			switch w.Op {
			case OpSet:
				_, err = tx.ExecContext(ctx, upsertQuery, w.Collection, w.ID, []byte(w.Data))
			case OpCreate:
				err = insertResult(tx.ExecContext(ctx, insertQuery, w.Collection, w.ID, []byte(w.Data)))
			case OpDelete:
				_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, w.Collection, w.ID)
			}
			if err != nil {
				return fmt.Errorf("batch write %s/%s: %w", w.Collection, w.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back batch", logging.Fields{"error": rbErr.Error()})
		}
		s.logger.Error("Batch failed", logging.Fields{"error": err.Error()})
		return err
	}

	return tx.Commit()
}
