// internal/app/features/admin/dashboard.go
package admin

import (
	"context"
	"net/http"

	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type countGroup struct {
	Total int64            `json:"total"`
	By    map[string]int64 `json:"by"`
}

func total(m map[string]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

type dashboardResponse struct {
	Users        countGroup    `json:"users"`
	Camps        countGroup    `json:"camps"`
	Applications countGroup    `json:"applications"`
	RecentUsers  []models.User `json:"recentUsers"`
}

// Dashboard handles GET /api/admin/dashboard. The counts run concurrently.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var out dashboardResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := h.Users.CountByAccountType(gctx)
		out.Users = countGroup{Total: total(m), By: m}
		return err
	})
	g.Go(func() error {
		m, err := h.Camps.CountByStatus(gctx)
		out.Camps = countGroup{Total: total(m), By: m}
		return err
	})
	g.Go(func() error {
		m, err := h.Applications.CountByStatus(gctx)
		out.Applications = countGroup{Total: total(m), By: m}
		return err
	})
	g.Go(func() (err error) {
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(RecentSignups)
		out.RecentUsers, err = h.Users.Find(gctx, bson.M{}, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.ServerError(w, h.Log, "admin dashboard", err)
		return
	}
	respond.OK(w, out)
}
