package models

// Registrant is the canonical, persisted representation of one submission.
// The record shape is total: PhotoURL is "" when no photo was supplied,
// never absent. ID is the anonymous uid that created the record and doubles
// as the document key: one record per identity, last write wins.
type Registrant struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Age                 int    `json:"age"`
	Mandalam            string `json:"mandalam"`
	Mekhala             string `json:"mekhala"`
	Unit                string `json:"unit"`
	PhotoURL            string `json:"photoURL"`
	SubmissionDate      string `json:"submissionDate"`
	AcceptedDeclaration bool   `json:"acceptedDeclaration"`
}

// Draft is the raw, not-yet-validated form input. Age stays a string until
// validation coerces it; Photo holds the uploaded image bytes as received.
type Draft struct {
	Name     string
	Phone    string
	Age      string
	Mandalam string
	Mekhala  string
	Unit     string
	Photo    []byte
}
