package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// aggregate loaders work inside and outside transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadPhoneNumbers returns phone numbers grouped by owner ID. ownerCol is one
// of our own column names ("contact_id" or "address_id"), never user input.
func loadPhoneNumbers(ctx context.Context, q querier, ownerCol string, ownerIDs []uuid.UUID) (map[uuid.UUID][]domain.PhoneNumber, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, `
		SELECT id, contact_id, address_id, number, archived, created_at, updated_at
		FROM phone_numbers
		WHERE `+ownerCol+` = ANY($1)
		ORDER BY archived, number
	`, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load phone numbers: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID][]domain.PhoneNumber)
	index := make(map[uuid.UUID]childSlot)
	var phoneIDs []uuid.UUID
	for rows.Next() {
		var p domain.PhoneNumber
		if err := rows.Scan(&p.ID, &p.ContactID, &p.AddressID, &p.Number, &p.Archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phone number: %w", err)
		}

		ownerID := p.AddressID
		if ownerCol == "contact_id" {
			ownerID = p.ContactID
		}
		grouped[*ownerID] = append(grouped[*ownerID], p)
		index[p.ID] = childSlot{owner: *ownerID, pos: len(grouped[*ownerID]) - 1}
		phoneIDs = append(phoneIDs, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(phoneIDs) == 0 {
		return grouped, nil
	}

	typeRows, err := q.Query(ctx, `
		SELECT l.phone_number_id, t.id, t.name, t.verbose
		FROM phone_number_type_links l
		JOIN phone_number_types t ON t.id = l.phone_number_type_id
		WHERE l.phone_number_id = ANY($1)
		ORDER BY t.verbose
	`, phoneIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load phone number types: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var (
			phoneID uuid.UUID
			label   domain.TypeLabel
		)
		if err := typeRows.Scan(&phoneID, &label.ID, &label.Name, &label.Verbose); err != nil {
			return nil, fmt.Errorf("failed to scan phone number type: %w", err)
		}
		slot := index[phoneID]
		phone := &grouped[slot.owner][slot.pos]
		phone.Types = append(phone.Types, label)
	}
	return grouped, typeRows.Err()
}

// childSlot locates a child row inside its owner's slice. Loaders record
// owner+position during the first scan and re-dereference when attaching type
// labels; holding element pointers across appends would leave them dangling
// once the backing array reallocates.
type childSlot struct {
	owner uuid.UUID
	pos   int
}

// loadTenancyTypes returns address-type labels grouped by tenancy ID.
func loadTenancyTypes(ctx context.Context, q querier, tenancyIDs []uuid.UUID) (map[uuid.UUID]domain.TypeLabels, error) {
	if len(tenancyIDs) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, `
		SELECT l.tenancy_id, t.id, t.name, t.verbose
		FROM tenancy_types l
		JOIN address_types t ON t.id = l.address_type_id
		WHERE l.tenancy_id = ANY($1)
		ORDER BY t.verbose
	`, tenancyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenancy types: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID]domain.TypeLabels)
	for rows.Next() {
		var (
			tenancyID uuid.UUID
			label     domain.TypeLabel
		)
		if err := rows.Scan(&tenancyID, &label.ID, &label.Name, &label.Verbose); err != nil {
			return nil, fmt.Errorf("failed to scan tenancy type: %w", err)
		}
		grouped[tenancyID] = append(grouped[tenancyID], label)
	}
	return grouped, rows.Err()
}

// applyPhoneInputs reconciles the submitted phone rows against the database:
// deletes flagged rows, updates existing ones, inserts new ones, and skips
// rows left empty. ownerCol is "contact_id" or "address_id".
func applyPhoneInputs(ctx context.Context, tx pgx.Tx, ownerCol string, ownerID uuid.UUID, inputs []domain.PhoneInput) error {
	for _, in := range inputs {
		switch {
		case in.Delete && in.ID != nil:
			if _, err := tx.Exec(ctx, `
				DELETE FROM phone_numbers WHERE id = $1 AND `+ownerCol+` = $2
			`, *in.ID, ownerID); err != nil {
				return fmt.Errorf("failed to delete phone number: %w", err)
			}

		case in.ID != nil:
			if _, err := tx.Exec(ctx, `
				UPDATE phone_numbers SET number = $1, archived = $2, updated_at = NOW()
				WHERE id = $3 AND `+ownerCol+` = $4
			`, in.Number, in.Archived, *in.ID, ownerID); err != nil {
				return fmt.Errorf("failed to update phone number: %w", err)
			}
			if err := replaceLinks(ctx, tx, "phone_number_type_links", "phone_number_id", "phone_number_type_id", *in.ID, in.TypeIDs); err != nil {
				return err
			}

		case in.Number != "":
			var phoneID uuid.UUID
			if err := tx.QueryRow(ctx, `
				INSERT INTO phone_numbers (`+ownerCol+`, number, archived, created_at, updated_at)
				VALUES ($1, $2, $3, NOW(), NOW())
				RETURNING id
			`, ownerID, in.Number, in.Archived).Scan(&phoneID); err != nil {
				return fmt.Errorf("failed to insert phone number: %w", err)
			}
			if err := replaceLinks(ctx, tx, "phone_number_type_links", "phone_number_id", "phone_number_type_id", phoneID, in.TypeIDs); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyEmailInputs(ctx context.Context, tx pgx.Tx, contactID uuid.UUID, inputs []domain.EmailInput) error {
	for _, in := range inputs {
		switch {
		case in.Delete && in.ID != nil:
			if _, err := tx.Exec(ctx, `
				DELETE FROM emails WHERE id = $1 AND contact_id = $2
			`, *in.ID, contactID); err != nil {
				return fmt.Errorf("failed to delete email: %w", err)
			}

		case in.ID != nil:
			_, err := tx.Exec(ctx, `
				UPDATE emails SET email = $1, archived = $2, updated_at = NOW()
				WHERE id = $3 AND contact_id = $4
			`, in.Address, in.Archived, *in.ID, contactID)
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			if err != nil {
				return fmt.Errorf("failed to update email: %w", err)
			}
			if err := replaceLinks(ctx, tx, "email_type_links", "email_id", "email_type_id", *in.ID, in.TypeIDs); err != nil {
				return err
			}

		case in.Address != "":
			var emailID uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO emails (contact_id, email, archived, created_at, updated_at)
				VALUES ($1, $2, $3, NOW(), NOW())
				RETURNING id
			`, contactID, in.Address, in.Archived).Scan(&emailID)
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			if err != nil {
				return fmt.Errorf("failed to insert email: %w", err)
			}
			if err := replaceLinks(ctx, tx, "email_type_links", "email_id", "email_type_id", emailID, in.TypeIDs); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyTenancyInputs reconciles the contact form's tenancy rows. The address
// ownership check rides on the INSERT ... SELECT against the user's addresses.
func applyTenancyInputs(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, inputs []domain.TenancyInput) error {
	for _, in := range inputs {
		switch {
		case in.Delete && in.ID != nil:
			if _, err := tx.Exec(ctx, `
				DELETE FROM tenancies WHERE id = $1 AND contact_id = $2
			`, *in.ID, contactID); err != nil {
				return fmt.Errorf("failed to delete tenancy: %w", err)
			}

		case in.ID != nil:
			if _, err := tx.Exec(ctx, `
				UPDATE tenancies SET archived = $1, updated_at = NOW()
				WHERE id = $2 AND contact_id = $3
			`, in.Archived, *in.ID, contactID); err != nil {
				return fmt.Errorf("failed to update tenancy: %w", err)
			}
			if err := replaceLinks(ctx, tx, "tenancy_types", "tenancy_id", "address_type_id", *in.ID, in.TypeIDs); err != nil {
				return err
			}

		case in.AddressID != uuid.Nil:
			var tenancyID uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO tenancies (contact_id, address_id, archived, created_at, updated_at)
				SELECT $1, id, $3, NOW(), NOW() FROM addresses WHERE id = $2 AND user_id = $4
				RETURNING id
			`, contactID, in.AddressID, in.Archived, userID).Scan(&tenancyID)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAddressNotFound
			}
			if isUniqueViolation(err) {
				return domain.ErrDuplicateTenancy
			}
			if err != nil {
				return fmt.Errorf("failed to insert tenancy: %w", err)
			}
			if err := replaceLinks(ctx, tx, "tenancy_types", "tenancy_id", "address_type_id", tenancyID, in.TypeIDs); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyWalletInputs(ctx context.Context, tx pgx.Tx, contactID uuid.UUID, inputs []domain.WalletInput) error {
	for _, in := range inputs {
		switch {
		case in.Delete && in.ID != nil:
			if _, err := tx.Exec(ctx, `
				DELETE FROM wallet_addresses WHERE id = $1 AND contact_id = $2
			`, *in.ID, contactID); err != nil {
				return fmt.Errorf("failed to delete wallet address: %w", err)
			}

		case in.ID != nil:
			if _, err := tx.Exec(ctx, `
				UPDATE wallet_addresses
				SET network_id = $1, transmission = $2, address = $3, archived = $4, updated_at = NOW()
				WHERE id = $5 AND contact_id = $6
			`, in.NetworkID, in.Transmission, in.Address, in.Archived, *in.ID, contactID); err != nil {
				return fmt.Errorf("failed to update wallet address: %w", err)
			}

		case in.Address != "":
			if _, err := tx.Exec(ctx, `
				INSERT INTO wallet_addresses (contact_id, network_id, transmission, address, archived, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			`, contactID, in.NetworkID, in.Transmission, in.Address, in.Archived); err != nil {
				return fmt.Errorf("failed to insert wallet address: %w", err)
			}
		}
	}
	return nil
}

// replaceLinks swaps a row's many-to-many type links for the submitted set.
// Table and column names are always our own constants.
func replaceLinks(ctx context.Context, tx pgx.Tx, table, ownerCol, typeCol string, ownerID uuid.UUID, typeIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE `+ownerCol+` = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	for _, typeID := range typeIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+table+` (`+ownerCol+`, `+typeCol+`) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, ownerID, typeID); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}
