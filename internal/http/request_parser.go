// Package http provides HTTP server and handler implementations.
//
// This file turns dashboard query parameters into analytics criteria.

package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/dataset"
)

// Query parameter names shared by /api/dashboard and /ui/kpis.
const (
	paramYear     = "year"
	paramCategory = "category"
	paramStart    = "start"
	paramEnd      = "end"
)

// ParamError reports a query parameter that could not be used.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("%s=%q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

var errNotADate = errors.New("expected YYYY-MM-DD")

// ParseCriteria reads year, category, start and end from query. Missing
// values are filled from ds: the latest year and the dataset's date range.
// category may repeat or hold a comma-separated list; a value matching a
// category of ds exactly is taken as that one label.
func ParseCriteria(query url.Values, ds *dataset.Dataset) (core.Criteria, error) {
	var c core.Criteria

	if v := strings.TrimSpace(query.Get(paramYear)); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return core.Criteria{}, &ParamError{Param: paramYear, Value: v, Err: core.ErrInvalidYear}
		}
		c.Year = y
	}

	if ds == nil {
		ds = dataset.New(nil)
	}
	c.Categories = parseCategories(query[paramCategory], ds)

	var err error
	if c.Start, err = parseDateParam(query, paramStart); err != nil {
		return core.Criteria{}, err
	}
	if c.End, err = parseDateParam(query, paramEnd); err != nil {
		return core.Criteria{}, err
	}

	resolved, err := ds.Resolve(c)
	if err != nil {
		param := paramYear
		if errors.Is(err, core.ErrInvalidRange) {
			param = paramStart
		}
		return core.Criteria{}, &ParamError{Param: param, Err: err}
	}
	return resolved, nil
}

// parseCategories accepts repeated values and comma-separated lists. A value
// that is itself a known category is never split.
func parseCategories(values []string, ds *dataset.Dataset) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		cleaned = append(cleaned, sanitizeInput(v))
	}
	return ds.ExpandCategories(cleaned)
}

func parseDateParam(query url.Values, name string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &ParamError{Param: name, Value: v, Err: errNotADate}
	}
	return d, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
