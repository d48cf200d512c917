package export

import (
	"fmt"

	"github.com/nandakv/regio/internal/models"
)

// ShareText composes the plain-text share payload for one record. The
// share endpoint always pairs it with a download URL, so a client whose
// share sheet is unavailable or dismissed still has a path to the data.
func ShareText(rec *models.Registrant) string {
	return fmt.Sprintf(
		"Member Profile:\n\nName: %s\nAge: %d\nPhone: %s\nMandalam: %s\nMekhala: %s\nUnit: %s",
		rec.Name, rec.Age, rec.Phone, rec.Mandalam, rec.Mekhala, rec.Unit,
	)
}
