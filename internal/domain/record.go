package domain

import "regexp"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// ClientRecord is the data of one person submitting the consent form. All
// fields are opaque strings; the renderer does not validate them.
type ClientRecord struct {
	FIO         string `json:"fio"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	BirthDate   string `json:"birth_date"`
	SubmittedAt string `json:"submitted_at"`
	RequestID   string `json:"request_id"`
}

// Filename returns the document name for a request id. Characters outside
// [A-Za-z0-9_.-] are replaced with underscores.
func Filename(requestID string) string {
	return "consent_" + unsafeFilenameChars.ReplaceAllString(requestID, "_") + ".pdf"
}
