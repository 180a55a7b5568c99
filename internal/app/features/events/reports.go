package events

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportRow is one person on one shift.
type ReportRow struct {
	PersonName  string    `json:"personName"`
	Date        time.Time `json:"date"`
	EventName   string    `json:"eventName"`
	ShiftTitle  string    `json:"shiftTitle"`
	ShiftTime   string    `json:"shiftTime"`
	Description string    `json:"description"`
}

// report lists everyone signed up for the caller's camp's shifts, keeping
// only shifts for which keep returns true.
func (h *Handler) report(ctx context.Context, r *http.Request, keep func(models.Shift) bool) ([]ReportRow, error) {
	c, err := h.callerCamp(ctx, r)
	if err != nil {
		return nil, err
	}
	evs, err := h.Events.ListByCamps(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	var ids []primitive.ObjectID
	for _, ev := range evs {
		for _, sh := range ev.Shifts {
			if keep(sh) {
				ids = append(ids, sh.MemberIDs...)
			}
		}
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	rows := []ReportRow{}
	for _, ev := range evs {
		for _, sh := range ev.Shifts {
			if !keep(sh) {
				continue
			}
			for _, id := range sh.MemberIDs {
				u, ok := users[id]
				if !ok {
					continue
				}
				name := strings.TrimSpace(u.FullName())
				if name == "" {
					name = u.Email
				}
				rows = append(rows, ReportRow{
					PersonName:  name,
					Date:        sh.Date,
					EventName:   ev.EventName,
					ShiftTitle:  sh.Title,
					ShiftTime:   sh.TimeRange(),
					Description: sh.Description,
				})
			}
		}
	}
	return rows, nil
}

// PerPerson handles GET /api/shifts/reports/per-person.
func (h *Handler) PerPerson(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.report(ctx, r, func(models.Shift) bool { return true })
	if err != nil {
		respond.Err(w, h.Log, err, "per-person report")
		return
	}
	respond.OK(w, map[string]any{"report": rows})
}

// PerDay handles GET /api/shifts/reports/per-day?date=YYYY-MM-DD.
func (h *Handler) PerDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("date")
	if q == "" {
		respond.Message(w, http.StatusBadRequest, "Date parameter is required")
		return
	}
	day, err := time.Parse(inputval.DateLayout, q)
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Date must be a date like 2026-08-30.")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.report(ctx, r, func(sh models.Shift) bool {
		return sh.Date.UTC().Format(inputval.DateLayout) == day.Format(inputval.DateLayout)
	})
	if err != nil {
		respond.Err(w, h.Log, err, "per-day report")
		return
	}
	respond.OK(w, map[string]any{"report": rows, "date": day.Format(inputval.DateLayout)})
}
