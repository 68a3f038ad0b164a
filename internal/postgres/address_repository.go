package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

const addressColumns = `a.id, a.user_id, a.address_line_1, a.address_line_2, a.neighbourhood,
	a.city, a.state, a.postcode, a.notes, a.created_at, a.updated_at,
	n.id, n.code, n.verbose`

const addressFrom = ` FROM addresses a LEFT JOIN nations n ON n.id = a.country_id`

// AddressRepo implements domain.AddressRepository backed by PostgreSQL.
type AddressRepo struct {
	pool *pgxpool.Pool
}

func NewAddressRepo(pool *pgxpool.Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var (
		a              domain.Address
		countryID      *uuid.UUID
		countryCode    *string
		countryVerbose *string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.Neighbourhood,
		&a.City, &a.State, &a.Postcode, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&countryID, &countryCode, &countryVerbose,
	)
	if err != nil {
		return nil, err
	}
	if countryID != nil {
		a.Country = &domain.Nation{ID: *countryID, Code: *countryCode, Verbose: *countryVerbose}
	}
	return &a, nil
}

func (r *AddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+addressColumns+addressFrom+`
		WHERE a.user_id = $1
		ORDER BY n.verbose NULLS LAST, a.city, a.address_line_1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*domain.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadAddressAggregates(ctx, addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *AddressRepo) GetByID(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	a, err := scanAddress(r.pool.QueryRow(ctx, `
		SELECT `+addressColumns+addressFrom+`
		WHERE a.id = $1 AND a.user_id = $2
	`, addressID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	if err := r.loadAddressAggregates(ctx, []*domain.Address{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// loadAddressAggregates attaches phone numbers and tenancies (with contact
// refs) to the given addresses in two batched queries.
func (r *AddressRepo) loadAddressAggregates(ctx context.Context, addresses []*domain.Address) error {
	if len(addresses) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Address, len(addresses))
	ids := make([]uuid.UUID, 0, len(addresses))
	for _, a := range addresses {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	phones, err := loadPhoneNumbers(ctx, r.pool, "address_id", ids)
	if err != nil {
		return err
	}
	for ownerID, ps := range phones {
		byID[ownerID].PhoneNumbers = ps
	}

	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.contact_id, t.address_id, t.archived, t.created_at, t.updated_at,
			c.first_name, c.last_name
		FROM tenancies t
		JOIN contacts c ON c.id = t.contact_id
		WHERE t.address_id = ANY($1)
		ORDER BY t.archived, c.first_name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load tenancies: %w", err)
	}
	defer rows.Close()

	tenancyIDs := make([]uuid.UUID, 0)
	slots := make(map[uuid.UUID]childSlot)
	for rows.Next() {
		var (
			t   domain.Tenancy
			ref domain.ContactRef
		)
		if err := rows.Scan(&t.ID, &t.ContactID, &t.AddressID, &t.Archived, &t.CreatedAt, &t.UpdatedAt,
			&ref.FirstName, &ref.LastName); err != nil {
			return fmt.Errorf("failed to scan tenancy: %w", err)
		}
		ref.ID = t.ContactID
		t.Contact = &ref

		addr := byID[t.AddressID]
		addr.Tenancies = append(addr.Tenancies, t)
		slots[t.ID] = childSlot{owner: t.AddressID, pos: len(addr.Tenancies) - 1}
		tenancyIDs = append(tenancyIDs, t.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	types, err := loadTenancyTypes(ctx, r.pool, tenancyIDs)
	if err != nil {
		return err
	}
	for tenancyID, slot := range slots {
		byID[slot.owner].Tenancies[slot.pos].Types = types[tenancyID]
	}
	return nil
}

func (r *AddressRepo) Create(ctx context.Context, userID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var addressID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO addresses (user_id, address_line_1, address_line_2, neighbourhood,
			city, state, postcode, country_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id
	`, userID, input.Line1, input.Line2, input.Neighbourhood,
		input.City, input.State, input.Postcode, input.CountryID, input.Notes).Scan(&addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	if err := r.syncTenancies(ctx, tx, userID, addressID, input.ContactIDs); err != nil {
		return nil, err
	}
	if err := applyPhoneInputs(ctx, tx, "address_id", addressID, input.Phones); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetByID(ctx, userID, addressID)
}

func (r *AddressRepo) Update(ctx context.Context, userID, addressID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	cmd, err := tx.Exec(ctx, `
		UPDATE addresses
		SET address_line_1 = $1, address_line_2 = $2, neighbourhood = $3, city = $4,
			state = $5, postcode = $6, country_id = $7, notes = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
	`, input.Line1, input.Line2, input.Neighbourhood, input.City,
		input.State, input.Postcode, input.CountryID, input.Notes, addressID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrAddressNotFound
	}

	if err := r.syncTenancies(ctx, tx, userID, addressID, input.ContactIDs); err != nil {
		return nil, err
	}
	if err := applyPhoneInputs(ctx, tx, "address_id", addressID, input.Phones); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetByID(ctx, userID, addressID)
}

// syncTenancies makes the address's tenancy set match contactIDs: linked
// contacts no longer chosen are detached, new ones attached.
func (r *AddressRepo) syncTenancies(ctx context.Context, tx pgx.Tx, userID, addressID uuid.UUID, contactIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM tenancies
		WHERE address_id = $1 AND NOT (contact_id = ANY($2))
	`, addressID, contactIDs); err != nil {
		return fmt.Errorf("failed to detach contacts: %w", err)
	}

	for _, contactID := range contactIDs {
		cmd, err := tx.Exec(ctx, `
			INSERT INTO tenancies (contact_id, address_id, created_at, updated_at)
			SELECT id, $2, NOW(), NOW() FROM contacts WHERE id = $1 AND user_id = $3
			ON CONFLICT (contact_id, address_id) DO NOTHING
		`, contactID, addressID, userID)
		if err != nil {
			return fmt.Errorf("failed to attach contact: %w", err)
		}
		// Zero rows and no conflict means the contact isn't the user's.
		if cmd.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM tenancies WHERE contact_id = $1 AND address_id = $2)
			`, contactID, addressID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to verify tenancy: %w", err)
			}
			if !exists {
				return domain.ErrContactNotFound
			}
		}
	}
	return nil
}

func (r *AddressRepo) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}
