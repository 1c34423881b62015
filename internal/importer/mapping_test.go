package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		header    string
		wantField string
		wantOK    bool
	}{
		{"Name", FieldName, true},
		{"Client Name", FieldName, true},
		{"customer", FieldName, true},
		{"Phone", FieldPhoneNumber, true},
		{"WhatsApp Number", FieldPhoneNumber, true},
		{"mobile_no", FieldPhoneNumber, true},
		{"No. HP", FieldPhoneNumber, true},
		{"E-Mail Address", FieldEmail, true},
		{"Status", FieldStatus, true},
		{"Pipeline Stage", FieldStatus, true},
		{"Priority", FieldPriority, true},
		{"Budget Range", FieldBudget, true},
		{"Purchase Timeframe", FieldTimeframe, true},
		{"Notes", FieldNotes, true},
		{"Remarks", FieldNotes, true},
		{"Tags", FieldTags, true},
		{"Lead Source", FieldOrigin, true},
		{"", "", false},
		{"Quantity", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			field, ok := Resolve(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestMapRow(t *testing.T) {
	headers := []string{"Client Name", "WhatsApp Number", "E-Mail", "Budget Range", "Quantity"}
	values := []string{"Amara Wirjono", "+628122222222", "amara@example.com", "50k-250k", "3"}

	row := MapRow(headers, values)

	assert.Equal(t, map[string]string{
		FieldName:        "Amara Wirjono",
		FieldPhoneNumber: "+628122222222",
		FieldEmail:       "amara@example.com",
		FieldBudget:      "50k-250k",
	}, row)
}

func TestMapRow_FirstColumnWinsOnDuplicates(t *testing.T) {
	headers := []string{"Phone", "Mobile"}
	values := []string{"+628111111111", "+628199999999"}

	row := MapRow(headers, values)

	assert.Equal(t, "+628111111111", row[FieldPhoneNumber])
}

func TestMapRow_SkipsEmptyValuesAndShortRows(t *testing.T) {
	headers := []string{"Name", "Phone", "Email"}
	values := []string{"Amara", "  "}

	row := MapRow(headers, values)

	assert.Equal(t, map[string]string{FieldName: "Amara"}, row)
}
