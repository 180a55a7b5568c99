// internal/app/system/csvutil/roster.go
package csvutil

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
)

// RosterHeaders is the column order of a roster export.
var RosterHeaders = []string{
	"First Name", "Last Name", "Email", "Playa Name", "City", "Years Burned",
	"Skills", "Has Ticket", "Has Vehicle Pass", "Travel Plans",
	"Early Arrival Interest", "Late Departure Interest", "Bio", "Social Media",
	"Dues Status", "Added to Roster",
}

const (
	dateLayout   = "2006-01-02"
	notSpecified = "Not specified"
)

// RosterRow formats one roster line. Overrides on the entry win over the
// member's profile values.
func RosterRow(e models.RosterEntry, u models.User) []string {
	playa := u.PlayaName
	if e.Overrides.PlayaName != nil {
		playa = *e.Overrides.PlayaName
	}
	years := u.YearsBurned
	if e.Overrides.YearsBurned != nil {
		years = *e.Overrides.YearsBurned
	}
	skills := u.Skills
	if e.Overrides.Skills != nil {
		skills = e.Overrides.Skills
	}
	city := u.City
	if city == "" {
		city = u.Location.City
	}
	dues := e.DuesStatus
	if dues == "" {
		dues = models.DuesUnpaid
	}

	return []string{
		sanitize(orNA(u.FirstName)),
		sanitize(orNA(u.LastName)),
		sanitize(orNA(u.Email)),
		sanitize(fallback(playa, "Not set")),
		sanitize(orNA(city)),
		yearsBurned(years),
		sanitize(strings.Join(skills, ", ")),
		yesNo(u.HasTicket),
		yesNo(u.HasVehiclePass),
		TravelPlans(u.ArrivalDate, u.DepartureDate),
		yesNo(u.InterestedInEAP),
		yesNo(u.InterestedInStrike),
		sanitize(u.Bio),
		sanitize(socialMedia(u.SocialMedia)),
		dues,
		e.AddedAt.UTC().Format(dateLayout),
	}
}

// WriteRoster writes the header and rows as CSV.
func WriteRoster(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(RosterHeaders); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// RosterFilename turns a roster name into "<name>_roster.csv".
func RosterFilename(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "_") + "_roster.csv"
}

// TravelPlans renders arrival and departure as a single cell.
func TravelPlans(arrive, depart *time.Time) string {
	a, d := formatDate(arrive), formatDate(depart)
	switch {
	case a == "" && d == "":
		return notSpecified
	case a == "":
		return "To: " + d
	case d == "":
		return "From: " + a
	}
	return a + " - " + d
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func yearsBurned(n int) string {
	if n <= 0 {
		return "Virgin"
	}
	return strconv.Itoa(n)
}

func socialMedia(s models.SocialMedia) string {
	var links []string
	if s.Instagram != "" {
		links = append(links, "Instagram: "+s.Instagram)
	}
	if s.Facebook != "" {
		links = append(links, "Facebook: "+s.Facebook)
	}
	if s.LinkedIn != "" {
		links = append(links, "LinkedIn: "+s.LinkedIn)
	}
	if len(links) == 0 {
		return "N/A"
	}
	return strings.Join(links, "; ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string { return fallback(s, "N/A") }

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// sanitize prefixes cells that spreadsheet apps would evaluate as formulas.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
