package domain

import (
	"strings"

	"github.com/google/uuid"
)

// TypeNamePreferred is the short name of the special "preferred" type that
// address, phone number, and email type tables each seed exactly once.
const TypeNamePreferred = "pref"

// TypeLabel is a row from one of the contactable type lookup tables
// (address_types, phone_number_types, email_types). Name is the short code
// used in vCard TYPE params; Verbose is what templates show.
type TypeLabel struct {
	ID      uuid.UUID
	Name    string
	Verbose string
}

type TypeLabels []TypeLabel

// Readable joins the verbose labels for display, e.g. "Home, Preferred".
func (ts TypeLabels) Readable() string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.Verbose)
	}
	return strings.Join(parts, ", ")
}

// Names returns the short codes in order, ready for a vCard TYPE param.
func (ts TypeLabels) Names() []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name)
	}
	return names
}

func (ts TypeLabels) HasPreferred() bool {
	for _, t := range ts {
		if t.Name == TypeNamePreferred {
			return true
		}
	}
	return false
}

func (ts TypeLabels) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}

// ContactableRow is the part of a submitted child row the preferred-type
// rules care about.
type ContactableRow struct {
	Archived bool
	Delete   bool
	TypeIDs  []uuid.UUID
}

// ValidatePreferredTypes enforces the preferred-type rules across a set of
// submitted rows for one child collection (emails, phone numbers, tenancies).
// Rows marked for deletion are ignored. The rules:
//
//   - at most one unarchived row may carry the preferred type
//   - when any unarchived row exists, exactly one of them must be preferred
//   - an archived row may not be preferred
//   - preferred may not be a row's only type
//
// Errors are collected under field in the returned FieldErrors.
func ValidatePreferredTypes(field string, prefID uuid.UUID, rows []ContactableRow) FieldErrors {
	errs := make(FieldErrors)

	unarchived := 0
	preferred := 0
	for _, row := range rows {
		if row.Delete {
			continue
		}

		hasPref := false
		for _, id := range row.TypeIDs {
			if id == prefID {
				hasPref = true
				break
			}
		}
		if !hasPref {
			if !row.Archived {
				unarchived++
			}
			continue
		}

		if row.Archived {
			errs.Add(field, "a preferred entry cannot be archived")
			continue
		}
		if len(row.TypeIDs) == 1 {
			errs.Add(field, "preferred cannot be the only type")
		}
		unarchived++
		preferred++
	}

	if preferred > 1 {
		errs.Add(field, "only one entry may be preferred")
	}
	if preferred == 0 && unarchived > 0 {
		errs.Add(field, "one entry must be preferred")
	}

	return errs
}
