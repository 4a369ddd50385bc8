package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"salesdash/internal/core"
	"salesdash/internal/dataset"
	applog "salesdash/internal/log"
)

var templateFuncs = template.FuncMap{
	"sameYear": func(a, b int) bool { return a == b },
}

// criteriaJSON echoes the effective criteria after defaults were applied.
type criteriaJSON struct {
	Year       int       `json:"year"`
	Categories []string  `json:"categories"`
	Start      core.Date `json:"start"`
	End        core.Date `json:"end"`
}

func newCriteriaJSON(c core.Criteria) criteriaJSON {
	cats := c.Categories
	if cats == nil {
		cats = []string{}
	}
	return criteriaJSON{Year: c.Year, Categories: cats, Start: c.Start, End: c.End}
}

// DashboardResponse is the /api/dashboard payload: the result, the
// effective criteria and the display strings of the KPIs.
type DashboardResponse struct {
	core.Result
	Criteria  criteriaJSON  `json:"criteria"`
	Formatted FormattedKPIs `json:"formatted"`
}

// NewDashboardResponse pairs res with the criteria it was computed for.
func NewDashboardResponse(res core.Result, c core.Criteria, f *Formatter) DashboardResponse {
	return DashboardResponse{
		Result:    res,
		Criteria:  newCriteriaJSON(c),
		Formatted: f.KPIs(res.KPIs),
	}
}

type indexData struct {
	Options  dataset.Options
	Criteria core.Criteria
	KPIs     FormattedKPIs
	Empty    bool
}

type kpiData struct {
	KPIs  FormattedKPIs
	Empty bool
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready while the dataset is loaded and the server is not draining.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIndex renders the dashboard page with the default filters applied.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ds := s.engine.Dataset()
	c, err := ParseCriteria(nil, ds)
	if err != nil {
		// defaults derived from a loaded dataset are always valid
		logger.ErrorContext(r.Context(), "Default criteria invalid", applog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	res := s.compute(r.Context(), c)

	data := indexData{
		Options:  ds.Options(),
		Criteria: c,
		KPIs:     s.formatter.KPIs(res.KPIs),
		Empty:    res.Empty(),
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err, "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	_ = NewResponse().BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	_ = NewResponse().JSON(s.engine.Dataset().Options()).Write(w)
}

// handleDashboard returns the full computation for the query's criteria.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query(), s.engine.Dataset())
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid dashboard criteria",
			applog.FieldError, err, applog.FieldQuery, r.URL.RawQuery)
		_ = ErrorJSON(http.StatusBadRequest, err).Write(w)
		return
	}

	res := s.compute(r.Context(), c)
	if err := NewResponse().JSON(NewDashboardResponse(res, c, s.formatter)).Write(w); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Write dashboard response", applog.FieldError, err)
	}
}

// handleKPIs renders the KPI cards partial for HTMX swaps.
func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query(), s.engine.Dataset())
	if err != nil {
		_ = ErrorHTML(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	if s.templates == nil {
		_ = ErrorHTML(http.StatusInternalServerError, "templates not loaded").Write(w)
		return
	}

	res := s.compute(r.Context(), c)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "kpis.html", kpiData{
		KPIs:  s.formatter.KPIs(res.KPIs),
		Empty: res.Empty(),
	}); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"KPI template execution failed", applog.FieldError, err, "template", "kpis.html")
		_ = ErrorHTML(http.StatusInternalServerError, "rendering failed").Write(w)
		return
	}
	_ = NewResponse().
		TriggerKPIsUpdated(c.Key(), res.Empty()).
		BodyHTML(buf.Bytes()).
		Write(w)
}

// handleMetrics exposes plain-text counters, one "name value" pair per line.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req := s.tracer.GetMetrics()
	cs := s.results.Cache().Stats()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "salesdash_http_requests_total %d\n", req.TotalRequests)
	fmt.Fprintf(&buf, "salesdash_http_client_errors_total %d\n", req.ClientErrors)
	fmt.Fprintf(&buf, "salesdash_http_server_errors_total %d\n", req.ServerErrors)
	fmt.Fprintf(&buf, "salesdash_http_avg_response_microseconds %d\n", req.AverageResponseTime)
	fmt.Fprintf(&buf, "salesdash_rate_limited_total %d\n", s.rateLimiter.Rejected())
	fmt.Fprintf(&buf, "salesdash_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	fmt.Fprintf(&buf, "salesdash_cache_hits_total %d\n", cs.Hits)
	fmt.Fprintf(&buf, "salesdash_cache_misses_total %d\n", cs.Misses)
	fmt.Fprintf(&buf, "salesdash_cache_entries %d\n", cs.Entries)
	fmt.Fprintf(&buf, "salesdash_dataset_rows %d\n", s.engine.Dataset().Len())

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
