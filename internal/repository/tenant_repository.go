package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wppserver/internal/entities"
)

type TenantRepository struct {
	db *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, t *entities.Tenant) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO tenants (id, user_id, wpp_number, name) VALUES ($1, $2, $3, $4)",
		t.ID, t.UserID, t.WppNumber, t.Name)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entities.Tenant, error) {
	var t entities.Tenant
	err := r.db.QueryRow(ctx,
		"SELECT id, user_id, wpp_number, name FROM tenants WHERE id = $1",
		id).Scan(&t.ID, &t.UserID, &t.WppNumber, &t.Name)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) FindByUser(ctx context.Context, userID string) ([]entities.Tenant, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, user_id, wpp_number, name FROM tenants WHERE user_id = $1 ORDER BY created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTenants(rows)
}

func (r *TenantRepository) All(ctx context.Context) ([]entities.Tenant, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, user_id, wpp_number, name FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTenants(rows)
}

func (r *TenantRepository) Update(ctx context.Context, t *entities.Tenant) error {
	_, err := r.db.Exec(ctx,
		"UPDATE tenants SET name = $2, wpp_number = $3 WHERE id = $1",
		t.ID, t.Name, t.WppNumber)
	return err
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id)
	return err
}

func scanTenants(rows pgx.Rows) ([]entities.Tenant, error) {
	var tenants []entities.Tenant
	for rows.Next() {
		var t entities.Tenant
		if err := rows.Scan(&t.ID, &t.UserID, &t.WppNumber, &t.Name); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
