// Package feed composes the filtered, sorted and paginated post and
// comment listings, including the per-user personalization predicates.
package feed

import (
	"strings"
	"time"

	"comet/internal/apperr"
	"comet/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

type Sort string

const (
	SortNew       Sort = "NEW"
	SortTop       Sort = "TOP"
	SortHot       Sort = "HOT"
	SortRelevance Sort = "RELEVANCE"
	SortComments  Sort = "COMMENTS"
)

// ParseSort accepts any case; an empty string yields def.
func ParseSort(s string, def Sort) (Sort, error) {
	if s == "" {
		return def, nil
	}
	switch v := Sort(strings.ToUpper(s)); v {
	case SortNew, SortTop, SortHot, SortRelevance, SortComments:
		return v, nil
	}
	return "", apperr.Validation("sort must be one of NEW, TOP, HOT, RELEVANCE, COMMENTS")
}

// ParseCommentSort accepts the orders a comment thread supports.
func ParseCommentSort(s string, def Sort) (Sort, error) {
	if s == "" {
		return def, nil
	}
	switch v := Sort(strings.ToUpper(s)); v {
	case SortNew, SortTop, SortHot:
		return v, nil
	}
	return "", apperr.Validation("comment sort must be one of NEW, TOP, HOT")
}

// Window restricts TOP-style listings to recent rows.
type Window string

const (
	WindowHour  Window = "HOUR"
	WindowDay   Window = "DAY"
	WindowWeek  Window = "WEEK"
	WindowMonth Window = "MONTH"
	WindowYear  Window = "YEAR"
	WindowAll   Window = "ALL"
)

func ParseWindow(s string, def Window) (Window, error) {
	if s == "" {
		return def, nil
	}
	switch v := Window(strings.ToUpper(s)); v {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll:
		return v, nil
	}
	return "", apperr.Validation("time must be one of HOUR, DAY, WEEK, MONTH, YEAR, ALL")
}

// Cutoff returns the oldest creation time inside the window. ok is false
// for ALL, which has no lower bound.
func (w Window) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	switch w {
	case WindowHour:
		return now.Add(-time.Hour), true
	case WindowDay:
		return now.AddDate(0, 0, -1), true
	case WindowWeek:
		return now.AddDate(0, 0, -7), true
	case WindowMonth:
		return now.AddDate(0, -1, 0), true
	case WindowYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// Filter picks between everything and the requester's followed set.
type Filter string

const (
	FilterAll       Filter = "ALL"
	FilterFollowing Filter = "FOLLOWING"
)

func ParseFilter(s string) (Filter, error) {
	switch strings.ToUpper(s) {
	case "", "ALL":
		return FilterAll, nil
	case "FOLLOWING", "MYPLANETS", "MYTOPICS":
		return FilterFollowing, nil
	}
	return "", apperr.Validation("filter must be ALL or FOLLOWING")
}

// ParseTypes parses a comma separated list of post types.
func ParseTypes(s string) ([]models.PostType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var types []models.PostType
	for _, part := range strings.Split(s, ",") {
		t := models.PostType(strings.ToUpper(strings.TrimSpace(part)))
		if !t.Valid() {
			return nil, apperr.Validation("types must be TEXT, LINK or IMAGE")
		}
		types = append(types, t)
	}
	return types, nil
}

// Query describes one post listing.
type Query struct {
	Page     int
	PageSize int
	Sort     Sort
	Window   Window
	Filter   Filter
	Types    []models.PostType

	// scope, at most one is normally set
	PlanetName string
	GalaxyName string
	Topic      string
	AuthorID   string
	Search     string
}

// Normalize clamps pagination and fills defaults. RELEVANCE without a
// search term is rejected.
func (q Query) Normalize() (Query, error) {
	q.Page, q.PageSize = ClampPage(q.Page, q.PageSize)
	if q.Sort == "" {
		q.Sort = SortHot
	}
	if q.Window == "" {
		q.Window = WindowAll
	}
	if q.Filter == "" {
		q.Filter = FilterAll
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Sort == SortRelevance && q.Search == "" {
		return q, apperr.Validation("RELEVANCE sort is only available when searching")
	}
	return q, nil
}

// ClampPage bounds page to >= 0 and size to [1, MaxPageSize], with 0
// meaning the default size.
func ClampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// Offset is the number of rows skipped before the page.
func (q Query) Offset() int {
	return q.Page * q.PageSize
}
