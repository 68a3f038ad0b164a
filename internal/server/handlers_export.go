package server

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"

	apperrors "github.com/notteddydev/reimagined-lamp/internal/errors"
	"github.com/notteddydev/reimagined-lamp/internal/export"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
	"github.com/notteddydev/reimagined-lamp/internal/vcard"
)

const (
	vcardMIME = "text/vcard"
	xlsxMIME  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleContactVCard serves a single contact's card, from the Redis cache
// when a render is still fresh.
func (s *Server) handleContactVCard(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	contact, err := s.repos.Contacts.GetByID(ctx, userID, contactID)
	if err != nil {
		return mapDomainError(err)
	}

	var card []byte
	if s.vcards != nil {
		if cached, ok := s.vcards.Get(ctx, contactID); ok {
			card = cached
		}
	}
	if card == nil {
		card, err = vcard.Compose(contact)
		if err != nil {
			return err
		}
		if s.vcards != nil {
			s.vcards.Set(ctx, contactID, card)
		}
	}

	metrics.ExportsTotal.WithLabelValues("vcard").Inc()
	attachment(c, slugify(contact.FullName())+".vcf")
	return c.Blob(200, vcardMIME, card)
}

func (s *Server) handleContactQRCode(c echo.Context) error {
	userID := currentUserID(c)

	contactID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	contact, err := s.repos.Contacts.GetByID(c.Request().Context(), userID, contactID)
	if err != nil {
		return mapDomainError(err)
	}

	png, err := vcard.QRCode(contact)
	if err != nil {
		return err
	}

	metrics.ExportsTotal.WithLabelValues("qrcode").Inc()
	return c.Blob(200, "image/png", png)
}

// handleContactListVCard bundles the (optionally filtered) contact list into
// one .vcf file. An empty result is a 404, not an empty download.
func (s *Server) handleContactListVCard(c echo.Context) error {
	userID := currentUserID(c)

	filter := contactFilterFromQuery(c)
	contacts, err := s.repos.Contacts.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return apperrors.NotFoundError("No contacts to export")
	}

	cards, err := vcard.ComposeAll(contacts)
	if err != nil {
		return err
	}

	metrics.ExportsTotal.WithLabelValues("vcard_list").Inc()
	attachment(c, exportFilename("contacts", "vcf", s.clock.Now()))
	return c.Blob(200, vcardMIME, cards)
}

func (s *Server) handleContactListXLSX(c echo.Context) error {
	userID := currentUserID(c)

	filter := contactFilterFromQuery(c)
	contacts, err := s.repos.Contacts.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}

	workbook, err := export.ContactsXLSX(contacts)
	if err != nil {
		return err
	}

	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()
	attachment(c, exportFilename("contacts", "xlsx", s.clock.Now()))
	return c.Blob(200, xlsxMIME, workbook)
}

func attachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
}

func exportFilename(stem, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", stem, now.Format("2006-01-02"), ext)
}

// slugify lowercases and dashes a name for use in a download filename.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "contact"
	}
	return slug
}
