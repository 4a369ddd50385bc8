package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesdash/internal/core"
)

var ErrMissingReportID = errors.New("report request has no id")

// ReportRequest asks the worker to compute the dashboard for one filter
// selection. Zero fields take the same defaults as the web dashboard.
type ReportRequest struct {
	ID          string    `json:"id"`
	Year        int       `json:"year,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Start       core.Date `json:"start"`
	End         core.Date `json:"end"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReportResponse carries either the computed result or an error message.
type ReportResponse struct {
	ID          string       `json:"id"`
	Year        int          `json:"year,omitempty"`
	Categories  []string     `json:"categories,omitempty"`
	Start       core.Date    `json:"start"`
	End         core.Date    `json:"end"`
	Result      *core.Result `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewReportRequest creates a request with a fresh id.
func NewReportRequest(c core.Criteria) *ReportRequest {
	return &ReportRequest{
		ID:          uuid.NewString(),
		Year:        c.Year,
		Categories:  core.NormalizeCategories(c.Categories),
		Start:       c.Start,
		End:         c.End,
		RequestedAt: time.Now().UTC(),
	}
}

// Criteria returns the selection as given, without defaults.
func (r *ReportRequest) Criteria() core.Criteria {
	return core.Criteria{
		Year:       r.Year,
		Categories: core.NormalizeCategories(r.Categories),
		Start:      r.Start,
		End:        r.End,
	}
}

// ToJSON converts the message to JSON bytes
func (r *ReportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ReportRequestFromJSON decodes a request and checks it carries an id.
func ReportRequestFromJSON(data []byte) (*ReportRequest, error) {
	var req ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, ErrMissingReportID
	}
	return &req, nil
}

// NewReportResponse builds a successful response for c.
func NewReportResponse(id string, c core.Criteria, result core.Result) *ReportResponse {
	resp := newResponse(id, c)
	resp.Result = &result
	return resp
}

// NewReportError builds a failed response; c may be the zero value.
func NewReportError(id string, c core.Criteria, err error) *ReportResponse {
	resp := newResponse(id, c)
	resp.Error = err.Error()
	return resp
}

func newResponse(id string, c core.Criteria) *ReportResponse {
	return &ReportResponse{
		ID:          id,
		Year:        c.Year,
		Categories:  c.Categories,
		Start:       c.Start,
		End:         c.End,
		GeneratedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (r *ReportResponse) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func ReportResponseFromJSON(data []byte) (*ReportResponse, error) {
	var resp ReportResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
