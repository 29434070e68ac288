package tasks

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/shared"
)

// ParseListQuery reads page, limit, status, priority and search from the URL
// query. Invalid values are collected into one validation error; an integer
// limit outside [1, MaxLimit] is clamped rather than rejected.
func ParseListQuery(owner uuid.UUID, values url.Values) (ListQuery, error) {
	q := ListQuery{Owner: owner, Page: shared.DefaultPage, Limit: shared.DefaultLimit}
	errs := &shared.ValidationError{}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			errs.Add("page", "Page must be a positive integer")
		} else {
			q.Page = page
		}
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add("limit", "Limit must be an integer between 1 and 100")
		} else {
			q.Limit = shared.ClampLimit(limit)
		}
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			errs.Add("status", fieldRules["status"][0].message)
		} else {
			q.Status = status
		}
	}

	if raw := strings.TrimSpace(values.Get("priority")); raw != "" {
		priority := Priority(raw)
		if !priority.Valid() {
			errs.Add("priority", fieldRules["priority"][0].message)
		} else {
			q.Priority = priority
		}
	}

	q.Search = strings.TrimSpace(values.Get("search"))

	if !errs.Has("page") && q.Page-1 > math.MaxInt/q.Limit {
		errs.Add("page", "Page is out of range")
	}

	if err := errs.Err(); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

// Offset is the row offset of the requested page.
func (q ListQuery) Offset() int {
	return shared.Offset(q.Page, q.Limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a literal search term into an ILIKE substring pattern.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
