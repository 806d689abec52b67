package contacts

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Contact is a customer record in the CRM.
type Contact struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Company   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomField is a tenant-defined attribute on a contact.
type CustomField struct {
	Key   string `json:"key" validate:"required,max=64"`
	Value string `json:"value" validate:"max=2000"`
}

// CreateContactInput carries validated fields for a new contact.
type CreateContactInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Company string `json:"company" validate:"max=255"`
}

// TagScope builds the optimistic scope key for a contact's tag list.
func TagScope(contactID int64) string {
	return "contact:tags:" + strconv.FormatInt(contactID, 10)
}

// FieldScope builds the optimistic scope key for a contact's custom fields.
func FieldScope(contactID int64) string {
	return "contact:fields:" + strconv.FormatInt(contactID, 10)
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SearchKey folds a display name for accent- and case-insensitive lookup:
// "Renée D'Ávila" and "renee d'avila" collapse to the same key.
func SearchKey(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NormalizeTag canonicalises a tag label for storage and comparison.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
