package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"konbata/internal/config"
	"konbata/internal/consts"
	"konbata/internal/entity"
	"konbata/internal/errs"
	"konbata/internal/fetcher"
	"konbata/internal/infrastructure/delivery/http/middleware"
	"konbata/internal/infrastructure/delivery/http/request"
	"konbata/internal/infrastructure/delivery/http/response"
	"konbata/internal/observability"
	"konbata/internal/orchestrator"
	"konbata/internal/selection"
)

type chain []func(http.Handler) http.Handler

func (c chain) thenFunc(h http.HandlerFunc) http.Handler {
	return c.then(h)
}

func (c chain) then(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		h = mw(h)
	}
	return h
}

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool

	fetch   fetcher.Fetcher
	sel     *selection.Set
	orc     *orchestrator.Orchestrator
	hub     http.Handler
	metrics *observability.Metrics
}

func New(log *slog.Logger, cfg *config.Config, fetch fetcher.Fetcher, sel *selection.Set, orc *orchestrator.Orchestrator, hub http.Handler, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log,
		cfg:      cfg,
		fetch:    fetch,
		sel:      sel,
		orc:      orc,
		hub:      hub,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, middleware := range slices.Backward(r.routeChain) {
		h = middleware(h)
	}
	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesSelection()
	r.SetRoutesRun()
	r.SetRoutesEvents()
	r.SetRoutesMetrics()
}

func (r *Router) SetRoutesHealthcheck() {
	healthcheckRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	healthcheckRouter.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/v1/", http.StripPrefix("/v1", healthcheckRouter))
}

func (ro *Router) SetRoutesSelection() {
	selectionRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	selectionRouter.HandleFunc("POST /", ro.Resolve)
	selectionRouter.HandleFunc("GET /", ro.GetSelection)
	selectionRouter.HandleFunc("DELETE /item", ro.RemoveRecord)
	selectionRouter.HandleFunc("DELETE /", ro.ClearSelection)

	ro.Handle("/v1/selection/", http.StripPrefix("/v1/selection", selectionRouter))
}

func (ro *Router) SetRoutesRun() {
	runRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	runRouter.HandleFunc("POST /", ro.StartRun)
	runRouter.HandleFunc("GET /", ro.GetRun)
	runRouter.HandleFunc("POST /pause", ro.PauseRun)
	runRouter.HandleFunc("POST /resume", ro.ResumeRun)
	runRouter.HandleFunc("POST /stop", ro.StopRun)

	ro.Handle("/v1/run/", http.StripPrefix("/v1/run", runRouter))
}

func (ro *Router) SetRoutesEvents() {
	ro.Handle("GET /v1/events", ro.hub)
}

func (ro *Router) SetRoutesMetrics() {
	ro.Handle("GET /metrics", observability.Handler())
}

// Resolve fetches metadata for the submitted locator and stores the record
// in the selection. Re-submitting a locator merges the fresh metadata into
// the stored record.
func (ro *Router) Resolve(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Resolve")

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.ResolveTimeout)
	defer cancel()

	var in request.Resolve
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	rec, err := ro.fetch.Fetch(ctx, in.Input)
	if errors.Is(err, errs.ErrRadioUnsupported) {
		log.DebugContext(ctx, consts.RespResolveFail, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespResolveFail, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespResolveFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespResolveFail, nil, err)

		return
	}

	stored := ro.sel.Upsert(ctx, *rec)

	log.InfoContext(ctx, consts.RespRecordResolved, slog.String("url", stored.SourceURL))

	response.Created(w, consts.RespRecordResolved, stored, nil)
}

func (ro *Router) GetSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	records := ro.sel.Snapshot(ctx)
	if len(records) == 0 {
		response.NoContent(w)

		return
	}

	response.OK(w, consts.RespSelectionRetrieved, records, nil)
}

func (ro *Router) RemoveRecord(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "RemoveRecord")
	ctx := r.Context()

	url := r.URL.Query().Get("url")
	if url == "" {
		log.ErrorContext(ctx, consts.RespQueryParamMissing)
		response.BadRequest(w, consts.RespQueryParamMissing, nil)

		return
	}

	if err := ro.sel.Remove(ctx, url); err != nil {
		log.DebugContext(ctx, consts.RespRecordNotFound, slog.Any("error", err))
		response.NotFound(w, consts.RespRecordNotFound, err)

		return
	}

	response.OK(w, consts.RespRecordRemoved, nil, nil)
}

func (ro *Router) ClearSelection(w http.ResponseWriter, r *http.Request) {
	ro.sel.Clear(r.Context())

	response.OK(w, consts.RespSelectionCleared, nil, nil)
}

// StartRun snapshots the selection and launches a run over it.
func (ro *Router) StartRun(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "StartRun")
	ctx := r.Context()

	var in request.Run
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	snapshot := ro.sel.Snapshot(ctx)
	if len(snapshot) == 0 {
		log.DebugContext(ctx, consts.RespSelectionEmpty)
		response.UnprocessableEntity(w, consts.RespSelectionEmpty, errs.ErrSelectionEmpty)

		return
	}

	records := make([]*entity.MediaRecord, len(snapshot))
	for i := range snapshot {
		records[i] = &snapshot[i]
	}

	err := ro.orc.Start(ctx, records, in.Options())
	switch {
	case errors.Is(err, errs.ErrRunActive):
		log.DebugContext(ctx, consts.RespRunActive, slog.Any("error", err))
		response.Conflict(w, consts.RespRunActive, err)

		return
	case errors.Is(err, errs.ErrInvalidKind), errors.Is(err, errs.ErrInvalidContainer),
		errors.Is(err, errs.ErrOutputDir), errors.Is(err, errs.ErrNoJobs):
		log.ErrorContext(ctx, consts.RespRunStartFail, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespRunStartFail, err)

		return
	case err != nil:
		log.ErrorContext(ctx, consts.RespRunStartFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespRunStartFail, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespRunStarted, slog.Int("jobs", len(records)))

	response.Accepted(w, consts.RespRunStarted, nil, nil)
}

func (ro *Router) GetRun(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetRun")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	jobs, err := ro.orc.Jobs(ctx)
	if errors.Is(err, errs.ErrNoRun) {
		log.DebugContext(ctx, consts.RespNoRun)
		response.NoContent(w)

		return
	}

	summary, err := ro.orc.Summary(ctx)
	if err != nil {
		log.ErrorContext(ctx, consts.RespNoRun, slog.Any("error", err))
		response.InternalServerError(w, consts.RespNoRun, nil, err)

		return
	}

	response.OK(w, consts.RespRunRetrieved, map[string]any{
		"summary": summary,
		"jobs":    jobs,
	}, nil)
}

func (ro *Router) PauseRun(w http.ResponseWriter, r *http.Request) {
	ro.control(w, r, "PauseRun", ro.orc.Pause, consts.RespRunPaused)
}

func (ro *Router) ResumeRun(w http.ResponseWriter, r *http.Request) {
	ro.control(w, r, "ResumeRun", ro.orc.Resume, consts.RespRunResumed)
}

func (ro *Router) StopRun(w http.ResponseWriter, r *http.Request) {
	ro.control(w, r, "StopRun", ro.orc.Stop, consts.RespRunStopped)
}

func (ro *Router) control(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context) error, okMsg string) {
	log := ro.log.With("handler", name)
	ctx := r.Context()

	err := fn(ctx)
	if errors.Is(err, errs.ErrNoRun) {
		log.DebugContext(ctx, consts.RespNoRun, slog.Any("error", err))
		response.Conflict(w, consts.RespNoRun, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, okMsg, slog.Any("error", err))
		response.InternalServerError(w, okMsg, nil, err)

		return
	}

	log.InfoContext(ctx, okMsg)

	response.OK(w, okMsg, nil, nil)
}
