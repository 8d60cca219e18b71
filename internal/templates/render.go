package templates

import (
	"strconv"
	"strings"
	"time"

	"telephony-backoffice/internal/users"
)

// Variables is the fixed table of values a template may reference.
// Zero-valued fields resolve to empty strings; placeholders outside the
// table stay verbatim in the output.
type Variables struct {
	User users.User
	Now  time.Time

	// Sender is the triggering party's number.
	Sender string

	// MessageText is the inbound SMS body, when the trigger was an SMS.
	MessageText string

	// CallType and CallDurationSeconds apply to call-triggered renders.
	CallType            string
	CallDurationSeconds int

	// AvailabilityStatus is "available" or "unavailable".
	AvailabilityStatus string
}

func (v Variables) table() map[string]string {
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}
	return map[string]string{
		"user.firstName": v.User.FirstName,
		"user.lastName":  v.User.LastName,
		"user.fullName":  strings.TrimSpace(v.User.FirstName + " " + v.User.LastName),
		"user.email":     v.User.Email,
		"user.phone":     v.User.AssignedNumber,

		"date": now.Format("2006-01-02"),
		"time": now.Format("15:04"),
		"day":  now.Weekday().String(),

		"sender":  v.Sender,
		"message": v.MessageText,

		"call.type":     v.CallType,
		"call.duration": strconv.Itoa(v.CallDurationSeconds),

		"availability.status": v.AvailabilityStatus,
	}
}

// Render substitutes the variable table into content using literal substring
// replacement. It never fails: unresolvable placeholders are left in place
// and values are inserted verbatim, with no pattern interpretation.
func Render(content string, vars Variables) string {
	if !strings.Contains(content, "{{") {
		return content
	}
	out := content
	for name, value := range vars.table() {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
