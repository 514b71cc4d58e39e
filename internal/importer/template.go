package importer

import (
	"bytes"
	"encoding/csv"
)

// TemplateFilename is the attachment name used when the template is downloaded.
const TemplateFilename = "users_import_template.csv"

var templateRows = [][]string{
	{ColName, ColEmail, ColPassword, ColRole, ColPosition, ColDepartment, ColOffice, ColPhone},
	{"Jane Doe", "jane.doe@example.com", "changeme123", "staff", "Clerk", "Records", "Head Office", "+1 555 0100"},
	{"John Smith", "john.smith@example.com", "changeme123", "executive", "Director", "Administration", "Head Office", "+1 555 0101"},
}

// TemplateCSV returns a sample import file: the header plus two example rows.
func TemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(templateRows)
	return buf.Bytes()
}
