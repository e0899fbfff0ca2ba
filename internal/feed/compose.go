package feed

import (
	"strings"
	"time"

	"comet/internal/models"
	"comet/internal/utils"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// searchVector weights title over link over body.
const searchVector = `setweight(to_tsvector('english', coalesce(posts.title, '')), 'A') || ` +
	`setweight(to_tsvector('english', coalesce(posts.link, '')), 'B') || ` +
	`setweight(to_tsvector('english', coalesce(posts.text_content, '')), 'C')`

// Posts builds the listing for q on top of tx. It returns ok=false when the
// result is known to be empty without asking the database. q must already
// be normalized.
func Posts(tx *gorm.DB, q Query, p *Personalization, now time.Time) (*gorm.DB, bool) {
	if q.Filter == FilterFollowing && p.FollowsNothing() {
		return nil, false
	}

	tx = tx.Model(&models.Post{}).
		Select("posts.*").
		Where("posts.deleted = false AND posts.removed = false")

	if len(q.Types) > 0 {
		tx = tx.Where("posts.type IN ?", q.Types)
	}

	switch {
	case q.PlanetName != "":
		tx = tx.Where("posts.planet_name = ?", q.PlanetName)
	case q.GalaxyName != "":
		tx = tx.Where("posts.planet_name IN (SELECT name FROM planets WHERE galaxy_name = ?)", q.GalaxyName)
	}
	if q.Topic != "" {
		tx = tx.Where("? = ANY(posts.topics)", q.Topic)
	}
	if q.AuthorID != "" {
		tx = tx.Where("posts.author_id = ?", q.AuthorID)
	}
	if q.Search != "" {
		pattern := "%" + utils.EscapeLike(q.Search) + "%"
		tx = tx.Where("(posts.title ILIKE ? OR posts.text_content ILIKE ? OR posts.link ILIKE ?)", pattern, pattern, pattern)
	}

	if q.Filter == FilterFollowing {
		tx = following(tx, p)
	}
	tx = personalize(tx, q, p)

	if cutoff, ok := q.Window.Cutoff(now); ok && windowed(q.Sort) {
		tx = tx.Where("posts.created_at > ?", cutoff)
	}

	tx = tx.Order(postOrder(q, now))
	return tx.Offset(q.Offset()).Limit(q.PageSize), true
}

// windowed sorts honour the time window. HOT decays on its own and NEW is
// plain recency.
func windowed(s Sort) bool {
	return s == SortTop || s == SortComments || s == SortRelevance
}

func following(tx *gorm.DB, p *Personalization) *gorm.DB {
	switch {
	case len(p.JoinedPlanets) > 0 && len(p.FollowedTopics) > 0:
		return tx.Where("(posts.planet_name IN ? OR posts.topics && ?)", p.JoinedPlanets, pq.StringArray(p.FollowedTopics))
	case len(p.JoinedPlanets) > 0:
		return tx.Where("posts.planet_name IN ?", p.JoinedPlanets)
	default:
		return tx.Where("posts.topics && ?", pq.StringArray(p.FollowedTopics))
	}
}

func personalize(tx *gorm.DB, q Query, p *Personalization) *gorm.DB {
	if p == nil {
		return tx
	}
	if len(p.BlockedUserIDs) > 0 {
		tx = tx.Where("posts.author_id NOT IN ?", p.BlockedUserIDs)
	}
	if len(p.HiddenPostIDs) > 0 {
		tx = tx.Where("posts.id NOT IN ?", p.HiddenPostIDs)
	}
	if len(p.HiddenTopics) > 0 {
		tx = tx.Where("NOT (posts.topics && ?)", pq.StringArray(p.HiddenTopics))
	}
	// a muted planet still shows when browsed directly
	if len(p.MutedPlanets) > 0 && q.PlanetName == "" {
		tx = tx.Where("(posts.planet_name IS NULL OR posts.planet_name NOT IN ?)", p.MutedPlanets)
	}
	return tx
}

func postOrder(q Query, now time.Time) clause.OrderBy {
	var parts []string
	var vars []interface{}

	if q.PlanetName != "" {
		parts = append(parts, "posts.sticky DESC")
	}
	switch q.Sort {
	case SortNew:
		parts = append(parts, "posts.created_at DESC")
	case SortTop:
		parts = append(parts, "posts.endorsement_count DESC", "posts.created_at DESC")
	case SortComments:
		parts = append(parts, "posts.comment_count DESC", "posts.created_at DESC")
	case SortRelevance:
		parts = append(parts, "ts_rank("+searchVector+", plainto_tsquery('english', ?)) DESC", "posts.created_at DESC")
		vars = append(vars, q.Search)
	default:
		parts = append(parts, hotOrderSQL("posts"), "posts.created_at DESC")
		vars = append(vars, now.Unix())
	}

	return clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}}
}

// Comments orders a post's comment thread, deleted ones included so replies keep their parents.
func Comments(tx *gorm.DB, postID string, sort Sort, now time.Time) *gorm.DB {
	tx = tx.Model(&models.Comment{}).Where("comments.post_id = ?", postID)

	var expr clause.Expr
	switch sort {
	case SortNew:
		expr = clause.Expr{SQL: "comments.created_at DESC"}
	case SortHot:
		expr = clause.Expr{SQL: hotOrderSQL("comments") + ", comments.created_at DESC", Vars: []interface{}{now.Unix()}}
	default:
		expr = clause.Expr{SQL: "comments.endorsement_count DESC, comments.created_at DESC"}
	}
	return tx.Order(clause.OrderBy{Expression: expr})
}

// AuthorComments lists a user's visible comments, newest first.
func AuthorComments(tx *gorm.DB, authorID string, page, size int) *gorm.DB {
	page, size = ClampPage(page, size)
	return tx.Model(&models.Comment{}).
		Where("comments.author_id = ? AND comments.deleted = false AND comments.removed = false", authorID).
		Order("comments.created_at DESC").
		Offset(page * size).
		Limit(size)
}
