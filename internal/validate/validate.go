// Package validate checks a registration draft against the form's field
// rules and returns field-scoped violations. Expected-invalid input is a
// Violations value, never a panic or an opaque error, and no violation
// ever triggers a network call.
package validate

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nandakv/regio/internal/models"
)

// Photo policy: optional, at most 5 MB, and one of the accepted image
// types. Undecodable-but-accepted bytes are handled later by the
// normalizer, which treats them as "no photo".
const MaxPhotoBytes = 5 << 20

// E.164-ish: optional +, no leading zero, 2-15 digits.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var acceptedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Violation is one field-level rule failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations implements error so services can return it directly.
type Violations []Violation

func (v Violations) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, viol := range v {
		parts[i] = viol.Field + ": " + viol.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Clean is the normalized, typed form of a draft that passed validation.
type Clean struct {
	Name     string
	Phone    string
	Age      int
	Mandalam string
	Mekhala  string
	Unit     string
	Photo    []byte
}

// Draft validates and normalizes d. On failure the returned Clean is nil
// and Violations lists every failed field.
func Draft(d models.Draft) (*Clean, Violations) {
	var violations Violations

	name := strings.TrimSpace(d.Name)
	if utf8.RuneCountInString(name) < 2 {
		violations = append(violations, Violation{"name", "name must be at least 2 characters"})
	}

	phone := strings.TrimSpace(d.Phone)
	if !phonePattern.MatchString(phone) {
		violations = append(violations, Violation{"phone", "enter a valid phone number"})
	}

	age, err := strconv.Atoi(strings.TrimSpace(d.Age))
	if err != nil {
		violations = append(violations, Violation{"age", "age must be a number"})
	} else if age < 1 {
		violations = append(violations, Violation{"age", "age must be a positive number"})
	} else if age > 120 {
		violations = append(violations, Violation{"age", "enter a valid age"})
	}

	mandalam := strings.TrimSpace(d.Mandalam)
	if mandalam == "" {
		violations = append(violations, Violation{"mandalam", "mandalam is required"})
	}
	mekhala := strings.TrimSpace(d.Mekhala)
	if mekhala == "" {
		violations = append(violations, Violation{"mekhala", "mekhala is required"})
	}
	unit := strings.TrimSpace(d.Unit)
	if unit == "" {
		violations = append(violations, Violation{"unit", "unit is required"})
	}

	if len(d.Photo) > 0 {
		if len(d.Photo) > MaxPhotoBytes {
			violations = append(violations, Violation{"photo", "photo must be 5MB or smaller"})
		} else if !acceptedPhotoTypes[http.DetectContentType(d.Photo)] {
			violations = append(violations, Violation{"photo", "photo must be a jpeg, png, or webp image"})
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}

	return &Clean{
		Name:     name,
		Phone:    phone,
		Age:      age,
		Mandalam: mandalam,
		Mekhala:  mekhala,
		Unit:     unit,
		Photo:    d.Photo,
	}, nil
}
