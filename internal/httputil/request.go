package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clipshare/internal/apperr"
	"clipshare/internal/model"
	"clipshare/internal/validation"
)

// MaxJSONBodyBytes caps request bodies decoded by DecodeJSON.
const MaxJSONBodyBytes = 1 << 20

// PathID parses a positive int64 chi URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// ParsePage reads page and limit. Missing values fall back to defaults;
// malformed or out-of-range values are rejected.
func ParsePage(r *http.Request, defaultLimit, maxLimit int) (model.PageRequest, error) {
	page := model.PageRequest{Page: 1, Limit: defaultLimit}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > model.MaxPage {
			return page, apperr.Validation("page must be between 1 and %d", model.MaxPage)
		}
		page.Page = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			return page, apperr.Validation("limit must be between 1 and %d", maxLimit)
		}
		page.Limit = v
	}
	return page, nil
}

// DecodeJSON decodes the body into v and runs struct validation.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body")
	}
	return validation.Struct(v)
}
