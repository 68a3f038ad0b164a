package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

const contactColumns = `c.id, c.user_id, c.first_name, c.middle_names, c.last_name, c.nickname,
	c.gender, c.dob, c.dod, c.anniversary, c.year_met, c.is_business, c.website, c.notes,
	c.created_at, c.updated_at, p.id, p.name`

const contactFrom = ` FROM contacts c LEFT JOIN professions p ON p.id = c.profession_id`

// contactFilterPredicates whitelists the fields the contact list may be
// filtered by. Matching is case-insensitive exact; anything not listed here
// never reaches SQL.
var contactFilterPredicates = map[string]string{
	"first_name":     `c.first_name ILIKE $2`,
	"last_name":      `c.last_name ILIKE $2`,
	"nickname":       `c.nickname ILIKE $2`,
	"year_met":       `c.year_met::text = $2`,
	"profession":     `p.name ILIKE $2`,
	"email":          `EXISTS (SELECT 1 FROM emails e WHERE e.contact_id = c.id AND e.email ILIKE $2)`,
	"phone_number":   `EXISTS (SELECT 1 FROM phone_numbers pn WHERE pn.contact_id = c.id AND pn.number ILIKE $2)`,
	"wallet_address": `EXISTS (SELECT 1 FROM wallet_addresses w WHERE w.contact_id = c.id AND w.address ILIKE $2)`,
	"tag": `EXISTS (SELECT 1 FROM contact_tags ct JOIN tags t ON t.id = ct.tag_id
		WHERE ct.contact_id = c.id AND t.name ILIKE $2)`,
	"nationality": `EXISTS (SELECT 1 FROM contact_nationalities cn JOIN nations n ON n.id = cn.nation_id
		WHERE cn.contact_id = c.id AND n.verbose ILIKE $2)`,
	"city": `EXISTS (SELECT 1 FROM tenancies t JOIN addresses a ON a.id = t.address_id
		WHERE t.contact_id = c.id AND a.city ILIKE $2)`,
	"state": `EXISTS (SELECT 1 FROM tenancies t JOIN addresses a ON a.id = t.address_id
		WHERE t.contact_id = c.id AND a.state ILIKE $2)`,
	"neighbourhood": `EXISTS (SELECT 1 FROM tenancies t JOIN addresses a ON a.id = t.address_id
		WHERE t.contact_id = c.id AND a.neighbourhood ILIKE $2)`,
	"country": `EXISTS (SELECT 1 FROM tenancies t JOIN addresses a ON a.id = t.address_id
		JOIN nations n ON n.id = a.country_id
		WHERE t.contact_id = c.id AND n.verbose ILIKE $2)`,
}

// escapeLikeValue neutralises ILIKE metacharacters so filter values match
// literally. Harmless for the year_met predicate: a year containing one of
// these characters matches nothing either way.
func escapeLikeValue(v string) string {
	return likeEscaper.Replace(v)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContactRepo implements domain.ContactRepository backed by PostgreSQL.
type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var (
		c              domain.Contact
		professionID   *uuid.UUID
		professionName *string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.FirstName, &c.MiddleNames, &c.LastName, &c.Nickname,
		&c.Gender, &c.DOB, &c.DOD, &c.Anniversary, &c.YearMet, &c.IsBusiness, &c.Website, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt, &professionID, &professionName,
	)
	if err != nil {
		return nil, err
	}
	if professionID != nil {
		c.Profession = &domain.Profession{ID: *professionID, Name: *professionName}
	}
	return &c, nil
}

func (r *ContactRepo) List(ctx context.Context, userID uuid.UUID, filter *domain.ContactFilter) ([]*domain.Contact, error) {
	query := `SELECT ` + contactColumns + contactFrom + ` WHERE c.user_id = $1`
	args := []any{userID}

	if filter != nil && filter.Value != "" {
		if predicate, ok := contactFilterPredicates[filter.Field]; ok {
			query += ` AND ` + predicate
			args = append(args, escapeLikeValue(filter.Value))
		}
	}
	query += ` ORDER BY c.first_name, c.last_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadContactAggregates(ctx, contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepo) GetByID(ctx context.Context, userID, contactID uuid.UUID) (*domain.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+contactFrom+` WHERE c.id = $1 AND c.user_id = $2`,
		contactID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	if err := r.loadContactAggregates(ctx, []*domain.Contact{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ContactRepo) Exists(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1 AND user_id = $2)`,
		contactID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check contact existence: %w", err)
	}
	return exists, nil
}

func (r *ContactRepo) Create(ctx context.Context, userID uuid.UUID, input domain.ContactInput) (*domain.Contact, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var contactID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO contacts (user_id, first_name, middle_names, last_name, nickname, gender,
			dob, dod, anniversary, year_met, is_business, profession_id, website, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id
	`, userID, input.FirstName, input.MiddleNames, input.LastName, input.Nickname, input.Gender,
		input.DOB, input.DOD, input.Anniversary, input.YearMet, input.IsBusiness,
		input.ProfessionID, input.Website, input.Notes).Scan(&contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	if err := r.applyRelations(ctx, tx, userID, contactID, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetByID(ctx, userID, contactID)
}

func (r *ContactRepo) Update(ctx context.Context, userID, contactID uuid.UUID, input domain.ContactInput) (*domain.Contact, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	cmd, err := tx.Exec(ctx, `
		UPDATE contacts
		SET first_name = $1, middle_names = $2, last_name = $3, nickname = $4, gender = $5,
			dob = $6, dod = $7, anniversary = $8, year_met = $9, is_business = $10,
			profession_id = $11, website = $12, notes = $13, updated_at = NOW()
		WHERE id = $14 AND user_id = $15
	`, input.FirstName, input.MiddleNames, input.LastName, input.Nickname, input.Gender,
		input.DOB, input.DOD, input.Anniversary, input.YearMet, input.IsBusiness,
		input.ProfessionID, input.Website, input.Notes, contactID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrContactNotFound
	}

	if err := r.applyRelations(ctx, tx, userID, contactID, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetByID(ctx, userID, contactID)
}

func (r *ContactRepo) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, contactID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

// applyRelations syncs the junction tables and reconciles the inline formset
// rows inside the caller's transaction.
func (r *ContactRepo) applyRelations(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, input domain.ContactInput) error {
	if err := syncNationalities(ctx, tx, contactID, input.NationalityIDs); err != nil {
		return err
	}
	if err := syncTags(ctx, tx, userID, contactID, input.TagIDs); err != nil {
		return err
	}
	if err := r.syncFamilyMembers(ctx, tx, userID, contactID, input.FamilyMemberIDs); err != nil {
		return err
	}

	if err := applyEmailInputs(ctx, tx, contactID, input.Emails); err != nil {
		return err
	}
	if err := applyPhoneInputs(ctx, tx, "contact_id", contactID, input.Phones); err != nil {
		return err
	}
	if err := applyTenancyInputs(ctx, tx, userID, contactID, input.Tenancies); err != nil {
		return err
	}
	return applyWalletInputs(ctx, tx, contactID, input.Wallets)
}

// syncNationalities replaces the contact's nationality links. Nations are a
// global lookup so no ownership check applies.
func syncNationalities(ctx context.Context, tx pgx.Tx, contactID uuid.UUID, nationIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM contact_nationalities WHERE contact_id = $1`, contactID); err != nil {
		return fmt.Errorf("failed to clear nationalities: %w", err)
	}
	for _, nationID := range nationIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_nationalities (contact_id, nation_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, contactID, nationID); err != nil {
			return fmt.Errorf("failed to insert nationality: %w", err)
		}
	}
	return nil
}

// syncTags replaces the contact's tag links, silently dropping any tag that
// does not belong to the user.
func syncTags(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM contact_tags WHERE contact_id = $1`, contactID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_tags (contact_id, tag_id)
			SELECT $1, id FROM tags WHERE id = $2 AND user_id = $3
			ON CONFLICT DO NOTHING
		`, contactID, tagID, userID); err != nil {
			return fmt.Errorf("failed to insert tag link: %w", err)
		}
	}
	return nil
}

// syncFamilyMembers keeps the symmetrical relation consistent by writing both
// directions for every linked relative.
func (r *ContactRepo) syncFamilyMembers(ctx context.Context, tx pgx.Tx, userID, contactID uuid.UUID, relativeIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM contact_family_members WHERE contact_id = $1 OR relative_id = $1
	`, contactID); err != nil {
		return fmt.Errorf("failed to clear family members: %w", err)
	}

	for _, relativeID := range relativeIDs {
		if relativeID == contactID {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_family_members (contact_id, relative_id)
			SELECT $1, id FROM contacts WHERE id = $2 AND user_id = $3
			UNION ALL
			SELECT id, $1 FROM contacts WHERE id = $2 AND user_id = $3
			ON CONFLICT DO NOTHING
		`, contactID, relativeID, userID); err != nil {
			return fmt.Errorf("failed to link family member: %w", err)
		}
	}
	return nil
}

// loadContactAggregates fills in every contact's child collections with one
// batched query per relation.
func (r *ContactRepo) loadContactAggregates(ctx context.Context, contacts []*domain.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Contact, len(contacts))
	ids := make([]uuid.UUID, 0, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	if err := r.loadEmails(ctx, ids, byID); err != nil {
		return err
	}

	phones, err := loadPhoneNumbers(ctx, r.pool, "contact_id", ids)
	if err != nil {
		return err
	}
	for ownerID, ps := range phones {
		byID[ownerID].PhoneNumbers = ps
	}

	if err := r.loadTenancies(ctx, ids, byID); err != nil {
		return err
	}
	if err := r.loadWallets(ctx, ids, byID); err != nil {
		return err
	}
	if err := r.loadTags(ctx, ids, byID); err != nil {
		return err
	}
	if err := r.loadNationalities(ctx, ids, byID); err != nil {
		return err
	}
	return r.loadFamilyMembers(ctx, ids, byID)
}

func (r *ContactRepo) loadEmails(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, email, archived, created_at, updated_at
		FROM emails
		WHERE contact_id = ANY($1)
		ORDER BY archived, email
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load emails: %w", err)
	}
	defer rows.Close()

	emailIDs := make([]uuid.UUID, 0)
	slots := make(map[uuid.UUID]childSlot)
	for rows.Next() {
		var e domain.Email
		if err := rows.Scan(&e.ID, &e.ContactID, &e.Address, &e.Archived, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan email: %w", err)
		}
		c := byID[e.ContactID]
		c.Emails = append(c.Emails, e)
		slots[e.ID] = childSlot{owner: e.ContactID, pos: len(c.Emails) - 1}
		emailIDs = append(emailIDs, e.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(emailIDs) == 0 {
		return nil
	}

	typeRows, err := r.pool.Query(ctx, `
		SELECT l.email_id, t.id, t.name, t.verbose
		FROM email_type_links l
		JOIN email_types t ON t.id = l.email_type_id
		WHERE l.email_id = ANY($1)
		ORDER BY t.verbose
	`, emailIDs)
	if err != nil {
		return fmt.Errorf("failed to load email types: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var (
			emailID uuid.UUID
			label   domain.TypeLabel
		)
		if err := typeRows.Scan(&emailID, &label.ID, &label.Name, &label.Verbose); err != nil {
			return fmt.Errorf("failed to scan email type: %w", err)
		}
		slot := slots[emailID]
		email := &byID[slot.owner].Emails[slot.pos]
		email.Types = append(email.Types, label)
	}
	return typeRows.Err()
}

func (r *ContactRepo) loadTenancies(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.contact_id, t.address_id, t.archived, t.created_at, t.updated_at,
			a.id, a.user_id, a.address_line_1, a.address_line_2, a.neighbourhood,
			a.city, a.state, a.postcode, a.notes, a.created_at, a.updated_at,
			n.id, n.code, n.verbose
		FROM tenancies t
		JOIN addresses a ON a.id = t.address_id
		LEFT JOIN nations n ON n.id = a.country_id
		WHERE t.contact_id = ANY($1)
		ORDER BY t.archived, a.city, a.address_line_1
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load tenancies: %w", err)
	}
	defer rows.Close()

	tenancyIDs := make([]uuid.UUID, 0)
	slots := make(map[uuid.UUID]childSlot)
	addressIDs := make([]uuid.UUID, 0)
	addressSeen := make(map[uuid.UUID]bool)
	for rows.Next() {
		var (
			t              domain.Tenancy
			a              domain.Address
			countryID      *uuid.UUID
			countryCode    *string
			countryVerbose *string
		)
		err := rows.Scan(&t.ID, &t.ContactID, &t.AddressID, &t.Archived, &t.CreatedAt, &t.UpdatedAt,
			&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.Neighbourhood,
			&a.City, &a.State, &a.Postcode, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
			&countryID, &countryCode, &countryVerbose)
		if err != nil {
			return fmt.Errorf("failed to scan tenancy: %w", err)
		}
		if countryID != nil {
			a.Country = &domain.Nation{ID: *countryID, Code: *countryCode, Verbose: *countryVerbose}
		}
		t.Address = &a

		c := byID[t.ContactID]
		c.Tenancies = append(c.Tenancies, t)
		slots[t.ID] = childSlot{owner: t.ContactID, pos: len(c.Tenancies) - 1}
		tenancyIDs = append(tenancyIDs, t.ID)
		if !addressSeen[a.ID] {
			addressSeen[a.ID] = true
			addressIDs = append(addressIDs, a.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	types, err := loadTenancyTypes(ctx, r.pool, tenancyIDs)
	if err != nil {
		return err
	}

	// Address-level phone numbers ride along for vCard composition.
	addressPhones, err := loadPhoneNumbers(ctx, r.pool, "address_id", addressIDs)
	if err != nil {
		return err
	}
	for tenancyID, slot := range slots {
		t := &byID[slot.owner].Tenancies[slot.pos]
		t.Types = types[tenancyID]
		t.Address.PhoneNumbers = addressPhones[t.AddressID]
	}
	return nil
}

func (r *ContactRepo) loadWallets(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.contact_id, w.transmission, w.address, w.archived, w.created_at, w.updated_at,
			cn.id, cn.name, cn.symbol
		FROM wallet_addresses w
		JOIN crypto_networks cn ON cn.id = w.network_id
		WHERE w.contact_id = ANY($1)
		ORDER BY w.archived, cn.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load wallet addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w domain.WalletAddress
		err := rows.Scan(&w.ID, &w.ContactID, &w.Transmission, &w.Address, &w.Archived, &w.CreatedAt, &w.UpdatedAt,
			&w.Network.ID, &w.Network.Name, &w.Network.Symbol)
		if err != nil {
			return fmt.Errorf("failed to scan wallet address: %w", err)
		}
		c := byID[w.ContactID]
		c.WalletAddresses = append(c.WalletAddresses, w)
	}
	return rows.Err()
}

func (r *ContactRepo) loadTags(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT ct.contact_id, t.id, t.user_id, t.name, t.created_at, t.updated_at
		FROM contact_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.contact_id = ANY($1)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			contactID uuid.UUID
			t         domain.Tag
		)
		if err := rows.Scan(&contactID, &t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		c := byID[contactID]
		c.Tags = append(c.Tags, t)
	}
	return rows.Err()
}

func (r *ContactRepo) loadNationalities(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT cn.contact_id, n.id, n.code, n.verbose
		FROM contact_nationalities cn
		JOIN nations n ON n.id = cn.nation_id
		WHERE cn.contact_id = ANY($1)
		ORDER BY n.verbose
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load nationalities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			contactID uuid.UUID
			n         domain.Nation
		)
		if err := rows.Scan(&contactID, &n.ID, &n.Code, &n.Verbose); err != nil {
			return fmt.Errorf("failed to scan nationality: %w", err)
		}
		c := byID[contactID]
		c.Nationalities = append(c.Nationalities, n)
	}
	return rows.Err()
}

func (r *ContactRepo) loadFamilyMembers(ctx context.Context, ids []uuid.UUID, byID map[uuid.UUID]*domain.Contact) error {
	rows, err := r.pool.Query(ctx, `
		SELECT f.contact_id, c.id, c.first_name, c.last_name
		FROM contact_family_members f
		JOIN contacts c ON c.id = f.relative_id
		WHERE f.contact_id = ANY($1)
		ORDER BY c.first_name, c.last_name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load family members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			contactID uuid.UUID
			ref       domain.ContactRef
		)
		if err := rows.Scan(&contactID, &ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return fmt.Errorf("failed to scan family member: %w", err)
		}
		c := byID[contactID]
		c.FamilyMembers = append(c.FamilyMembers, ref)
	}
	return rows.Err()
}
