package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

// LookupRepo serves the seeded reference tables.
type LookupRepo struct {
	pool *pgxpool.Pool
}

func NewLookupRepo(pool *pgxpool.Pool) *LookupRepo {
	return &LookupRepo{pool: pool}
}

func (r *LookupRepo) Nations(ctx context.Context) ([]domain.Nation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, verbose FROM nations ORDER BY verbose`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nations: %w", err)
	}
	defer rows.Close()

	var nations []domain.Nation
	for rows.Next() {
		var n domain.Nation
		if err := rows.Scan(&n.ID, &n.Code, &n.Verbose); err != nil {
			return nil, fmt.Errorf("failed to scan nation: %w", err)
		}
		nations = append(nations, n)
	}
	return nations, rows.Err()
}

func (r *LookupRepo) Professions(ctx context.Context) ([]domain.Profession, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM professions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list professions: %w", err)
	}
	defer rows.Close()

	var professions []domain.Profession
	for rows.Next() {
		var p domain.Profession
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan profession: %w", err)
		}
		professions = append(professions, p)
	}
	return professions, rows.Err()
}

func (r *LookupRepo) CryptoNetworks(ctx context.Context) ([]domain.CryptoNetwork, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, symbol FROM crypto_networks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto networks: %w", err)
	}
	defer rows.Close()

	var networks []domain.CryptoNetwork
	for rows.Next() {
		var n domain.CryptoNetwork
		if err := rows.Scan(&n.ID, &n.Name, &n.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan crypto network: %w", err)
		}
		networks = append(networks, n)
	}
	return networks, rows.Err()
}

func (r *LookupRepo) AddressTypes(ctx context.Context) (domain.TypeLabels, error) {
	return r.typeLabels(ctx, "address_types")
}

func (r *LookupRepo) PhoneNumberTypes(ctx context.Context) (domain.TypeLabels, error) {
	return r.typeLabels(ctx, "phone_number_types")
}

func (r *LookupRepo) EmailTypes(ctx context.Context) (domain.TypeLabels, error) {
	return r.typeLabels(ctx, "email_types")
}

// typeLabels reads a contactable type table. The table name is always one of
// our own constants, never user input.
func (r *LookupRepo) typeLabels(ctx context.Context, table string) (domain.TypeLabels, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, verbose FROM `+table+` ORDER BY verbose`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	return scanTypeLabels(rows)
}

func scanTypeLabels(rows pgx.Rows) (domain.TypeLabels, error) {
	var types domain.TypeLabels
	for rows.Next() {
		var t domain.TypeLabel
		if err := rows.Scan(&t.ID, &t.Name, &t.Verbose); err != nil {
			return nil, fmt.Errorf("failed to scan type label: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
