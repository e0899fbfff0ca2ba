package feed

import (
	"reflect"
	"testing"
	"time"

	"comet/internal/models"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// dryRun returns a gorm handle that renders SQL without a database.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=comet dbname=comet sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry run db: %v", err)
	}
	return db
}

func render(t *testing.T, q Query, p *Personalization) (string, []interface{}) {
	t.Helper()
	q, err := q.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	tx, ok := Posts(dryRun(t), q, p, testNow)
	if !ok {
		t.Fatalf("query %+v unexpectedly short-circuited", q)
	}
	stmt := tx.Find(&[]models.Post{}).Statement
	return stmt.SQL.String(), stmt.Vars
}

func hasVar(vars []interface{}, want interface{}) bool {
	for _, v := range vars {
		if reflect.DeepEqual(v, want) {
			return true
		}
	}
	return false
}

func mustContain(t *testing.T, sql string, frags ...string) {
	t.Helper()
	for _, f := range frags {
		if !contains(sql, f) {
			t.Errorf("SQL is missing %q:\n%s", f, sql)
		}
	}
}

func mustNotContain(t *testing.T, sql string, frags ...string) {
	t.Helper()
	for _, f := range frags {
		if contains(sql, f) {
			t.Errorf("SQL unexpectedly contains %q:\n%s", f, sql)
		}
	}
}

func TestPostsNewAnonymous(t *testing.T) {
	sql, _ := render(t, Query{Sort: SortNew, Window: WindowDay}, nil)
	mustContain(t, sql, "posts.deleted = false AND posts.removed = false", "ORDER BY posts.created_at DESC")
	mustNotContain(t, sql, "NOT IN", "posts.created_at >", "&&")
}

func TestTopRestrictsToWindow(t *testing.T) {
	for _, w := range []Window{WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear} {
		sql, vars := render(t, Query{Sort: SortTop, Window: w}, nil)
		mustContain(t, sql, "posts.created_at >", "ORDER BY posts.endorsement_count DESC, posts.created_at DESC")
		cutoff, _ := w.Cutoff(testNow)
		if !hasVar(vars, cutoff) {
			t.Errorf("%s: cutoff %v not bound, vars %v", w, cutoff, vars)
		}
	}

	sql, _ := render(t, Query{Sort: SortTop, Window: WindowAll}, nil)
	mustNotContain(t, sql, "posts.created_at >")
}

func TestHotIgnoresWindow(t *testing.T) {
	sql, vars := render(t, Query{Sort: SortHot, Window: WindowHour}, nil)
	mustNotContain(t, sql, "posts.created_at >")
	mustContain(t, sql, "POWER(", "+ 100000) / 6, 1.0 / 3) DESC, posts.created_at DESC")
	if !hasVar(vars, testNow.Unix()) {
		t.Errorf("now not bound: %v", vars)
	}
}

func TestPersonalizationExcludesBlockedHiddenAndMuted(t *testing.T) {
	p := &Personalization{
		UserID:         "me",
		BlockedUserIDs: []string{"troll"},
		HiddenPostIDs:  []string{"p1", "p2"},
		HiddenTopics:   []string{"politics"},
		MutedPlanets:   []string{"memes"},
	}
	sql, vars := render(t, Query{Sort: SortNew}, p)
	mustContain(t, sql,
		"posts.author_id NOT IN",
		"posts.id NOT IN",
		"NOT (posts.topics &&",
		"posts.planet_name NOT IN",
	)
	for _, want := range []interface{}{"troll", "p1", "p2", "memes", pq.StringArray{"politics"}} {
		if !hasVar(vars, want) {
			t.Errorf("missing bound var %v in %v", want, vars)
		}
	}
}

func TestMutedPlanetVisibleWhenBrowsedDirectly(t *testing.T) {
	p := &Personalization{UserID: "me", MutedPlanets: []string{"memes"}}
	sql, _ := render(t, Query{Sort: SortNew, PlanetName: "memes"}, p)
	mustNotContain(t, sql, "posts.planet_name NOT IN")
	mustContain(t, sql, "posts.planet_name = ", "ORDER BY posts.sticky DESC, posts.created_at DESC")
}

func TestFollowingWithNothingFollowedIsEmpty(t *testing.T) {
	q, _ := Query{Filter: FilterFollowing}.Normalize()
	if _, ok := Posts(dryRun(t), q, &Personalization{UserID: "me"}, testNow); ok {
		t.Fatal("user following nothing must get an empty feed")
	}
	if _, ok := Posts(dryRun(t), q, nil, testNow); ok {
		t.Fatal("anonymous FOLLOWING feed must be empty")
	}
}

func TestFollowingRestrictsToJoinedAndFollowed(t *testing.T) {
	p := &Personalization{UserID: "me", JoinedPlanets: []string{"golang"}, FollowedTopics: []string{"rust"}}
	sql, vars := render(t, Query{Filter: FilterFollowing, Sort: SortNew}, p)
	mustContain(t, sql, "posts.planet_name IN", "posts.topics &&")
	if !hasVar(vars, "golang") || !hasVar(vars, pq.StringArray{"rust"}) {
		t.Errorf("followed sets not bound: %v", vars)
	}
}

func TestSearchIsParameterized(t *testing.T) {
	term := "50%_off'; DROP TABLE posts; --"
	sql, vars := render(t, Query{Sort: SortNew, Search: term}, nil)
	mustNotContain(t, sql, "DROP TABLE", "50%")
	mustContain(t, sql, "posts.title ILIKE", "posts.text_content ILIKE", "posts.link ILIKE")
	want := `%50\%\_off'; DROP TABLE posts; --%`
	if !hasVar(vars, want) {
		t.Errorf("escaped pattern %q not bound: %v", want, vars)
	}
}

func TestRelevanceRanksWeightedText(t *testing.T) {
	sql, vars := render(t, Query{Sort: SortRelevance, Search: "go generics"}, nil)
	mustContain(t, sql, "ts_rank(", "coalesce(posts.title, '')), 'A')", "coalesce(posts.link, '')), 'B')", "plainto_tsquery('english',")
	if !hasVar(vars, "go generics") {
		t.Errorf("search term not bound for ranking: %v", vars)
	}
}

func TestPagination(t *testing.T) {
	_, vars := render(t, Query{Sort: SortNew, Page: 3, PageSize: 10}, nil)
	n := len(vars)
	if n < 2 || vars[n-2] != 10 || vars[n-1] != 30 {
		t.Fatalf("expected LIMIT 10 OFFSET 30, vars %v", vars)
	}

	_, vars = render(t, Query{Sort: SortNew, Page: 0, PageSize: 500}, nil)
	if vars[len(vars)-1] != MaxPageSize {
		t.Fatalf("page size not clamped: %v", vars)
	}
}

func TestScopes(t *testing.T) {
	sql, vars := render(t, Query{Sort: SortNew, GalaxyName: "science"}, nil)
	mustContain(t, sql, "SELECT name FROM planets WHERE galaxy_name =")
	if !hasVar(vars, "science") {
		t.Errorf("galaxy not bound: %v", vars)
	}

	sql, vars = render(t, Query{Sort: SortNew, Topic: "nba", AuthorID: "u1", Types: []models.PostType{models.PostTypeLink}}, nil)
	mustContain(t, sql, "= ANY(posts.topics)", "posts.author_id =", "posts.type IN")
	if !hasVar(vars, "nba") || !hasVar(vars, "u1") || !hasVar(vars, models.PostTypeLink) {
		t.Errorf("scope vars missing: %v", vars)
	}
}

func TestCommentsOrder(t *testing.T) {
	db := dryRun(t)
	tests := map[Sort]string{
		SortNew: "ORDER BY comments.created_at DESC",
		SortTop: "ORDER BY comments.endorsement_count DESC, comments.created_at DESC",
		SortHot: "ORDER BY comments.endorsement_count / POWER(",
	}
	for sort, want := range tests {
		stmt := Comments(db, "p1", sort, testNow).Find(&[]models.Comment{}).Statement
		mustContain(t, stmt.SQL.String(), want, "comments.post_id =")
	}
}
