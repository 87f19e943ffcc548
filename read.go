package queuedash

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// queueSummary is one element of the GET /api/queues response.
type queueSummary struct {
	Name   string  `json:"name"`
	Counts *Counts `json:"counts"`
	Paused bool    `json:"paused"`
}

func (g *Gateway) handleListQueues(w http.ResponseWriter, r *http.Request) {
	names := g.registry.Names()
	out := make([]*queueSummary, len(names))

	eg, ctx := errgroup.WithContext(r.Context())
	for i, name := range names {
		q, _ := g.registry.Lookup(name)

		eg.Go(func() error {
			counts, err := q.JobCounts(ctx)
			if err != nil {
				return err
			}

			paused, err := q.Paused(ctx)
			if err != nil {
				return err
			}

			// out is indexed by registry position, no write overlaps
			out[i] = &queueSummary{Name: q.Name(), Counts: counts, Paused: paused}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	start, end := parseRange(r)

	if raw := r.URL.Query().Get("state"); raw != "" {
		state, err := ParseState(raw)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		jobs, err := q.Jobs(r.Context(), state, start, end)
		if err != nil {
			g.engineError(w, err)
			return
		}

		for _, j := range jobs {
			j.State = state
		}

		if jobs == nil {
			jobs = []*Job{}
		}

		g.writeJSON(w, http.StatusOK, jobs)
		return
	}

	jobs, err := g.mergeStates(r, q, end)
	if err != nil {
		g.engineError(w, err)
		return
	}

	if start > len(jobs) {
		start = len(jobs)
	}
	if end > len(jobs) {
		end = len(jobs)
	}

	g.writeJSON(w, http.StatusOK, jobs[start:end])
}

// mergeStates fetches [0, end) for all five states concurrently, tags each
// job with its source state and merges the results newest-first. The
// per-state fetch depth reuses the caller's end, so a sparse state next to a
// deep one can under-fill the final window; that approximation is kept as-is.
func (g *Gateway) mergeStates(r *http.Request, q Queue, end int) ([]*Job, error) {
	perState := make([][]*Job, len(States))

	eg, ctx := errgroup.WithContext(r.Context())
	for i, state := range States {
		eg.Go(func() error {
			jobs, err := q.Jobs(ctx, state, 0, end)
			if err != nil {
				return err
			}

			for _, j := range jobs {
				j.State = state
			}

			perState[i] = jobs
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*Job, 0, len(States)*end)
	for _, jobs := range perState {
		merged = append(merged, jobs...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})

	return merged, nil
}

// jobDetail is the GET /api/queues/{name}/job/{id} response.
type jobDetail struct {
	*Job
	Logs []string `json:"logs"`
}

func (g *Gateway) handleGetJob(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	h, err := q.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		g.engineError(w, err)
		return
	}

	job := h.Job()

	eg, ctx := errgroup.WithContext(r.Context())

	var logs []string
	eg.Go(func() error {
		var lerr error
		logs, lerr = q.JobLogs(ctx, job.ID)
		return lerr
	})

	eg.Go(func() error {
		state, serr := h.State(ctx)
		if serr != nil {
			return serr
		}
		job.State = state
		return nil
	})

	if err := eg.Wait(); err != nil {
		g.engineError(w, err)
		return
	}

	if logs == nil {
		logs = []string{}
	}

	g.writeJSON(w, http.StatusOK, &jobDetail{Job: job, Logs: logs})
}

func (g *Gateway) handleWorkers(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	workers, err := q.Workers(r.Context())
	if err != nil {
		g.engineError(w, err)
		return
	}

	if workers == nil {
		workers = []*WorkerInfo{}
	}

	g.writeJSON(w, http.StatusOK, workers)
}

func (g *Gateway) handleSchedulers(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	schedulers, err := q.Schedulers(r.Context())
	if err != nil {
		g.engineError(w, err)
		return
	}

	if schedulers == nil {
		schedulers = []*SchedulerInfo{}
	}

	g.writeJSON(w, http.StatusOK, schedulers)
}

func (g *Gateway) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	start, end := parseRange(r)

	jobs, err := q.DeadLetter(r.Context(), start, end)
	if err != nil {
		g.engineError(w, err)
		return
	}

	if jobs == nil {
		jobs = []*Job{}
	}

	g.writeJSON(w, http.StatusOK, jobs)
}

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	var completed, failed int64

	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() error {
		var err error
		completed, err = q.StateCount(ctx, StateCompleted)
		return err
	})
	eg.Go(func() error {
		var err error
		failed, err = q.StateCount(ctx, StateFailed)
		return err
	})

	if err := eg.Wait(); err != nil {
		g.engineError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]int64{
		"completed": completed,
		"failed":    failed,
	})
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := g.lookup(w, r)
	if !ok {
		return
	}

	filter, err := parseSearchFilter(r)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := q.Search(r.Context(), filter)
	if err != nil {
		g.engineError(w, err)
		return
	}

	if jobs == nil {
		jobs = []*Job{}
	}

	g.writeJSON(w, http.StatusOK, jobs)
}
