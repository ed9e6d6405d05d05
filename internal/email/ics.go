package email

import (
	"fmt"
	"strings"
	"time"
)

// Invite describes a single-event calendar invitation.
type Invite struct {
	UID            string
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	OrganizerName  string
	OrganizerEmail string
	AttendeeEmail  string
}

// BuildICS renders the invite as an iCalendar request. Times are emitted in
// UTC; lines end with CRLF as RFC 5545 requires.
func BuildICS(inv Invite) []byte {
	var b strings.Builder
	writeLine := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//slotwise//booking-api//EN")
	writeLine("CALSCALE:GREGORIAN")
	writeLine("METHOD:REQUEST")
	writeLine("BEGIN:VEVENT")
	writeLine("UID:" + escapeICS(inv.UID))
	writeLine("DTSTAMP:" + icsTime(time.Now().UTC()))
	writeLine("DTSTART:" + icsTime(inv.Start.UTC()))
	writeLine("DTEND:" + icsTime(inv.End.UTC()))
	writeLine("SUMMARY:" + escapeICS(inv.Summary))
	if inv.Description != "" {
		writeLine("DESCRIPTION:" + escapeICS(inv.Description))
	}
	if inv.OrganizerEmail != "" {
		writeLine(fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s",
			escapeICS(inv.OrganizerName), inv.OrganizerEmail))
	}
	if inv.AttendeeEmail != "" {
		writeLine(fmt.Sprintf("ATTENDEE;ROLE=REQ-PARTICIPANT;PARTSTAT=NEEDS-ACTION:mailto:%s",
			inv.AttendeeEmail))
	}
	writeLine("STATUS:CONFIRMED")
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")

	return []byte(b.String())
}

func icsTime(t time.Time) string {
	return t.Format("20060102T150405Z")
}

func escapeICS(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}
