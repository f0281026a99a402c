// This file turns desk form submissions into controller arguments. Field
// values are passed on exactly as submitted: the desk does no client-side
// validation and leaves every decision to the backend API.

package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feedesk/internal/core"
)

// Form field names, matching the page's input ids.
const (
	fieldAddName    = "addName"
	fieldModifyID   = "modifyId"
	fieldModifyName = "modifyName"
	fieldSearchID   = "searchId"
	fieldStartDate  = "startDate"
	fieldEndDate    = "endDate"
)

const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads a request body as JSON or form data. HTMX posts
// form data; scripted clients may post JSON.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request. The body is
// read once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the raw value for key from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// fields returns the submitted values of r: the query string for GET, the
// body otherwise.
func fields(r *http.Request) (func(string) string, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		q := r.URL.Query()
		return q.Get, nil
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p.Get, nil
}

// ParseAddForm reads addName.
func ParseAddForm(r *http.Request) (string, error) {
	get, err := fields(r)
	if err != nil {
		return "", err
	}
	return get(fieldAddName), nil
}

// ParseModifyForm reads modifyId and modifyName.
func ParseModifyForm(r *http.Request) (core.ID, string, error) {
	get, err := fields(r)
	if err != nil {
		return "", "", err
	}
	return core.ID(get(fieldModifyID)), get(fieldModifyName), nil
}

// ParseSearchForm reads searchId, startDate and endDate.
func ParseSearchForm(r *http.Request) (core.SearchQuery, error) {
	get, err := fields(r)
	if err != nil {
		return core.SearchQuery{}, err
	}
	return core.SearchQuery{
		MemberID:  core.ID(get(fieldSearchID)),
		StartDate: get(fieldStartDate),
		EndDate:   get(fieldEndDate),
	}, nil
}

// sanitizeInput removes control characters and trims whitespace. Only used
// for identifiers the server itself interprets, never for values forwarded
// to the backend.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// isHTMX reports whether r was issued by htmx rather than a plain form post.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
