// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON and HTMX partial responses
// so every handler sets headers, triggers and status the same way.

package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerKPIsUpdated tells the page which criteria the KPI partial was rendered for.
func (b *ResponseBuilder) TriggerKPIsUpdated(key string, empty bool) *ResponseBuilder {
	return b.Trigger("kpis:updated", map[string]any{"key": key, "empty": empty})
}

// JSON marshals v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	b.headers["Content-Type"] = "application/json"
	b.body = body
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html []byte) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = html
	return b
}

// Write sends the built response. A body that failed to marshal becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) error {
	if b.err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return b.err
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, err := w.Write(b.body)
		return err
	}
	return nil
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Param string `json:"param,omitempty"`
}

// ErrorJSON creates a JSON error response. A *ParamError names the offending parameter.
func ErrorJSON(statusCode int, err error) *ResponseBuilder {
	body := errorBody{Error: err.Error()}
	var pe *ParamError
	if errors.As(err, &pe) {
		body.Param = pe.Param
	}
	return NewResponse().Status(statusCode).JSON(body)
}

// ErrorHTML creates an HTML error fragment for HTMX targets. The message is escaped.
func ErrorHTML(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		BodyHTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

// MethodNotAllowed creates a 405 response listing the allowed methods.
func MethodNotAllowed(allowedMethods string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods)
}
