// Package export renders contact lists as downloadable spreadsheets.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

const sheetName = "Contacts"

var contactHeader = []string{
	"First Name",
	"Middle Names",
	"Last Name",
	"Nickname",
	"Gender",
	"Date of Birth",
	"Year Met",
	"Profession",
	"Nationalities",
	"Preferred Email",
	"Preferred Phone",
	"Tags",
	"Addresses",
	"Website",
	"Notes",
}

var contactColumnWidths = []float64{
	15, // First Name
	18, // Middle Names
	15, // Last Name
	15, // Nickname
	8,  // Gender
	14, // Date of Birth
	10, // Year Met
	15, // Profession
	22, // Nationalities
	28, // Preferred Email
	20, // Preferred Phone
	22, // Tags
	40, // Addresses
	28, // Website
	40, // Notes
}

// ContactsXLSX renders the contact list as an Excel workbook.
func ContactsXLSX(contacts []*domain.Contact) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // buffer already written

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range contactHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, contactColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, contact := range contacts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &[]any{
			contact.FirstName,
			contact.MiddleNames,
			contact.LastName,
			contact.Nickname,
			strings.ToUpper(contact.Gender),
			dateOrEmpty(contact),
			contact.YearMet,
			professionName(contact),
			nationalities(contact),
			preferredEmail(contact),
			preferredPhone(contact),
			strings.Join(contact.TagNames(), ", "),
			addresses(contact),
			contact.Website,
			contact.Notes,
		}); err != nil {
			return nil, fmt.Errorf("failed to write contact row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func dateOrEmpty(contact *domain.Contact) string {
	if contact.DOB == nil {
		return ""
	}
	return contact.DOB.Format("2006-01-02")
}

func professionName(contact *domain.Contact) string {
	if contact.Profession == nil {
		return ""
	}
	return contact.Profession.Name
}

func nationalities(contact *domain.Contact) string {
	names := make([]string, len(contact.Nationalities))
	for i, n := range contact.Nationalities {
		names[i] = n.Verbose
	}
	return strings.Join(names, ", ")
}

func preferredEmail(contact *domain.Contact) string {
	if email := contact.PreferredEmail(); email != nil {
		return email.Address
	}
	return ""
}

func preferredPhone(contact *domain.Contact) string {
	if phone := contact.PreferredPhoneNumber(); phone != nil {
		return phone.Formatted()
	}
	return ""
}

func addresses(contact *domain.Contact) string {
	var parts []string
	for _, tenancy := range contact.UnarchivedTenancies() {
		parts = append(parts, tenancy.Address.Readable())
	}
	return strings.Join(parts, "\n\n")
}
