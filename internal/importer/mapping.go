// Package importer maps spreadsheet-style column headers onto canonical
// client fields. Import files come from many sources with inconsistent
// headings ("Phone", "WhatsApp Number", "mobile_no"), so resolution is
// driven by a declarative candidate table instead of ad-hoc matching at
// call sites.
package importer

import (
	"strings"
)

// Canonical client field names produced by Resolve.
const (
	FieldName        = "name"
	FieldPhoneNumber = "phone_number"
	FieldEmail       = "email"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldBudget      = "budget"
	FieldTimeframe   = "timeframe"
	FieldNotes       = "notes"
	FieldTags        = "tags"
	FieldOrigin      = "origin"
)

// fieldCandidates maps a canonical field to the normalized substrings that
// identify it in a header. Order matters: the first field whose candidate
// matches wins, so the more specific fields sit before the generic ones
// (e.g. "phone" before "name", since "phone name" columns do not exist but
// "contact name" and "contact number" both contain "contact").
var fieldCandidates = []struct {
	field      string
	candidates []string
}{
	{FieldPhoneNumber, []string{"phone", "mobile", "whatsapp", "wa number", "contact number", "telp", "hp"}},
	{FieldEmail, []string{"email", "e-mail", "mail"}},
	{FieldStatus, []string{"status", "stage"}},
	{FieldPriority, []string{"priority"}},
	{FieldBudget, []string{"budget", "spend"}},
	{FieldTimeframe, []string{"timeframe", "timeline", "time frame"}},
	{FieldNotes, []string{"note", "comment", "remark"}},
	{FieldTags, []string{"tag", "label"}},
	{FieldOrigin, []string{"origin", "source", "channel"}},
	{FieldName, []string{"name", "client", "customer"}},
}

// Resolve maps a raw column header to its canonical client field.
func Resolve(header string) (field string, ok bool) {
	normalized := normalizeHeader(header)
	if normalized == "" {
		return "", false
	}
	for _, entry := range fieldCandidates {
		for _, candidate := range entry.candidates {
			if strings.Contains(normalized, candidate) {
				return entry.field, true
			}
		}
	}
	return "", false
}

// MapRow pairs a header row with a value row and returns the canonical
// fields found. Unresolvable headers and empty values are dropped; when two
// columns resolve to the same field the first one wins.
func MapRow(headers, values []string) map[string]string {
	row := make(map[string]string)
	for i, header := range headers {
		if i >= len(values) {
			break
		}
		field, ok := Resolve(header)
		if !ok {
			continue
		}
		value := strings.TrimSpace(values[i])
		if value == "" {
			continue
		}
		if _, exists := row[field]; exists {
			continue
		}
		row[field] = value
	}
	return row
}

// normalizeHeader lowercases the header and collapses separators so
// "Phone_Number" and "phone number" resolve alike.
func normalizeHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")
	return strings.Join(strings.Fields(normalized), " ")
}
