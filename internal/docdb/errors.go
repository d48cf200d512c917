package docdb

import "fmt"

// Error is a server-reported failure: bad command, rejected write,
// missing key, or an access rule firing.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("docdb: %s", e.Msg)
}
