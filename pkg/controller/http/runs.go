package http

import (
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/utils/topic"
)

const defaultListLimit = 50

// RunsHandler serves pipeline run history and live run events
type RunsHandler struct {
	store  interfaces.RunStore
	events *topic.Topic[model.RunEvent]
}

// NewRunsHandler creates a new RunsHandler
func NewRunsHandler(store interfaces.RunStore, events *topic.Topic[model.RunEvent]) *RunsHandler {
	return &RunsHandler{
		store:  store,
		events: events,
	}
}

// HandleList serves GET /api/runs
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, goerr.New("invalid limit parameter"), http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(ctx, limit)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to list runs", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*model.PipelineRun{}
	}

	writeJSON(w, map[string]any{"runs": runs})
}

// HandleGet serves GET /api/runs/{runID}
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to get run", "run_id", runID, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if run == nil {
		writeError(w, goerr.New("run not found", goerr.V("run_id", runID)), http.StatusNotFound)
		return
	}

	writeJSON(w, run)
}

// HandleEvents serves GET /api/runs/{runID}/events as a websocket stream of
// run events. The stream ends when the run finishes or the client goes away.
func (h *RunsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)
	runID := chi.URLParam(r, "runID")

	if h.events == nil {
		writeError(w, goerr.New("event streaming not enabled"), http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("Failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	ch, cancel := h.events.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if ev.RunID != runID {
				continue
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				logger.Debug("Websocket write failed, closing stream", "error", err)
				return
			}
			if ev.Type == model.EventRunFinished {
				conn.Close(websocket.StatusNormalClosure, "run finished")
				return
			}
		}
	}
}
