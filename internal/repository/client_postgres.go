package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/deppfellow/cardapi/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the postgres repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const clientColumns = `id, oib, first_name, last_name, status, created_at, updated_at`

const (
	insertClientSQL = `
INSERT INTO client (oib, first_name, last_name, status)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`

	updateClientSQL = `
UPDATE client
SET oib = $2, first_name = $3, last_name = $4, status = $5, updated_at = now()
WHERE id = $1
RETURNING created_at, updated_at`

	selectClientByIDSQL = `SELECT ` + clientColumns + ` FROM client WHERE id = $1`

	selectClientsSQL = `SELECT ` + clientColumns + ` FROM client`

	selectClientsByOIBSQL = `SELECT ` + clientColumns + ` FROM client WHERE oib = $1 ORDER BY id`

	deleteClientByIDSQL = `DELETE FROM client WHERE id = $1`

	deleteClientsByOIBSQL = `DELETE FROM client WHERE oib = $1 RETURNING ` + clientColumns
)

// PostgresClientRepository stores client requests in the "client" table.
type PostgresClientRepository struct {
	db Querier
}

// NewPostgresClientRepository returns a repository backed by db.
func NewPostgresClientRepository(db Querier) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

func (r *PostgresClientRepository) Create(ctx context.Context, c *model.Client) error {
	err := r.db.QueryRow(ctx, insertClientSQL, c.OIB, c.FirstName, c.LastName, string(c.Status)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) Update(ctx context.Context, c *model.Client) error {
	err := r.db.QueryRow(ctx, updateClientSQL, c.ID, c.OIB, c.FirstName, c.LastName, string(c.Status)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrClientNotFound
	}
	if err != nil {
		return fmt.Errorf("update client %d: %w", c.ID, err)
	}
	return nil
}

func (r *PostgresClientRepository) FindByID(ctx context.Context, id int64) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, selectClientByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find client %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresClientRepository) FindAll(ctx context.Context, filter model.ClientFilter) ([]model.Client, error) {
	query, args := buildFindAllQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return collectClients(rows)
}

func (r *PostgresClientRepository) FindByOIB(ctx context.Context, oib int64) ([]model.Client, error) {
	rows, err := r.db.Query(ctx, selectClientsByOIBSQL, oib)
	if err != nil {
		return nil, fmt.Errorf("list clients for oib %d: %w", oib, err)
	}
	return collectClients(rows)
}

func (r *PostgresClientRepository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteClientByIDSQL, id)
	if err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *PostgresClientRepository) DeleteByOIB(ctx context.Context, oib int64) ([]model.Client, error) {
	rows, err := r.db.Query(ctx, deleteClientsByOIBSQL, oib)
	if err != nil {
		return nil, fmt.Errorf("delete clients for oib %d: %w", oib, err)
	}
	deleted, err := collectClients(rows)
	if err != nil {
		return nil, err
	}
	// RETURNING has no guaranteed order.
	slices.SortFunc(deleted, func(a, b model.Client) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return deleted, nil
}

// buildFindAllQuery ANDs every set filter field into a WHERE clause.
func buildFindAllQuery(filter model.ClientFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.OIB != nil {
		add("oib", *filter.OIB)
	}
	if filter.FirstName != nil {
		add("first_name", *filter.FirstName)
	}
	if filter.LastName != nil {
		add("last_name", *filter.LastName)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}

	query := selectClientsSQL
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY id", args
}

func scanClient(row pgx.Row) (*model.Client, error) {
	var (
		c      model.Client
		status string
	)
	if err := row.Scan(&c.ID, &c.OIB, &c.FirstName, &c.LastName, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = model.Status(status)
	return &c, nil
}

func collectClients(rows pgx.Rows) ([]model.Client, error) {
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}
