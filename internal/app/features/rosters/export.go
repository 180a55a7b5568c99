// internal/app/features/rosters/export.go
package rosters

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dalemusser/camphub/internal/app/system/csvutil"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Export handles GET /api/rosters/{id}/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	roster, _, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "export roster")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(roster.Members))
	for _, e := range roster.Members {
		ids = append(ids, e.User)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "export roster: users", err)
		return
	}

	rows := make([][]string, 0, len(roster.Members))
	for _, e := range roster.Members {
		u, ok := users[e.User]
		if !ok {
			continue
		}
		rows = append(rows, csvutil.RosterRow(e, u))
	}

	// Build in memory so a write error can still become a 500.
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM for Excel
	if err := csvutil.WriteRoster(&buf, rows); err != nil {
		respond.ServerError(w, h.Log, "export roster: csv", err)
		return
	}

	filename := csvutil.RosterFilename(roster.Name)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Log.Warn("roster export write failed", zap.Error(err), zap.String("roster_id", roster.ID.Hex()))
	}
}
