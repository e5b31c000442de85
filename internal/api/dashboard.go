package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dashboard is the combined landing view. A section whose read failed holds
// its zero value and the failure is recorded in Errors under the section name.
type Dashboard struct {
	Stats     Stats            `json:"stats"`
	Budgets   []Budget         `json:"budgets"`
	Anomalies []Anomaly        `json:"anomalies"`
	Errors    map[string]error `json:"-"`
}

// Failed reports whether any section fell back to its empty value.
func (d *Dashboard) Failed() bool {
	return len(d.Errors) > 0
}

// LoadDashboard fetches stats, budgets and anomalies in parallel. A failed
// section does not fail the others. The only error returned is session
// expiry, since none of the sections can succeed after it.
func (c *Client) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	var (
		stats     *Stats
		budgets   []Budget
		anomalies []Anomaly
		errs      [3]error
	)

	// Each goroutine reports through errs and returns nil so one failure
	// does not cancel the group context.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, errs[0] = c.Reports().Stats(gctx)
		return nil
	})
	g.Go(func() error {
		budgets, errs[1] = c.Budgets().List(gctx)
		return nil
	})
	g.Go(func() error {
		anomalies, errs[2] = c.Reports().Anomalies(gctx, RangeFilter{})
		return nil
	})
	_ = g.Wait()

	out := &Dashboard{Budgets: []Budget{}, Anomalies: []Anomaly{}}
	names := [3]string{"stats", "budgets", "anomalies"}
	for i, err := range errs {
		if err == nil {
			continue
		}
		if IsSessionExpired(err) {
			return nil, err
		}
		if out.Errors == nil {
			out.Errors = make(map[string]error)
		}
		out.Errors[names[i]] = err
		c.Logger.Warn().Err(err).Str("section", names[i]).Msg("dashboard section unavailable")
	}

	if stats != nil {
		out.Stats = *stats
	}
	if budgets != nil {
		out.Budgets = budgets
	}
	if anomalies != nil {
		out.Anomalies = anomalies
	}
	return out, nil
}
