package database

import (
	"fmt"
	"math"
	"strings"
)

// DefaultFindLimit is the page size used when a non-positive limit is given.
const DefaultFindLimit = 10

// FindQueryBuilder builds the paginated name filter query over dislikes
type FindQueryBuilder struct {
	name       string
	kind       Kind
	casePolicy CasePolicy
	limit      int
	page       int
}

// NewFindQueryBuilder creates a builder for the given name substring
func NewFindQueryBuilder(name string) *FindQueryBuilder {
	return &FindQueryBuilder{
		name:  name,
		limit: DefaultFindLimit,
		page:  1,
	}
}

// WithCasePolicy selects LIKE (case-insensitive) or instr (case-sensitive) matching
func (b *FindQueryBuilder) WithCasePolicy(p CasePolicy) *FindQueryBuilder {
	b.casePolicy = p
	return b
}

// WithKind restricts results to one kind. The zero value matches all kinds.
func (b *FindQueryBuilder) WithKind(k Kind) *FindQueryBuilder {
	b.kind = k
	return b
}

// WithPage sets the page size and the 1-based page number. Pages whose
// offset would overflow are clamped to the last representable one, which
// is past any real row.
func (b *FindQueryBuilder) WithPage(limit, page int) *FindQueryBuilder {
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/limit {
		page = math.MaxInt/limit + 1
	}
	b.limit = limit
	b.page = page
	return b
}

// Offset returns the row offset of the configured page
func (b *FindQueryBuilder) Offset() int {
	return (b.page - 1) * b.limit
}

// HasMore reports whether rows remain past the given page out of total.
func HasMore(limit, page, total int) bool {
	b := NewFindQueryBuilder("").WithPage(limit, page)
	return total-b.Offset() > b.limit
}

func (b *FindQueryBuilder) where() (string, []any) {
	var conditions []string
	var args []any

	if b.kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(b.kind))
	}

	if b.name != "" {
		switch b.casePolicy {
		case CaseSensitive:
			conditions = append(conditions, "instr(name, ?) > 0")
			args = append(args, b.name)
		default:
			conditions = append(conditions, `name LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(b.name)+"%")
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Build constructs the page query and its arguments
func (b *FindQueryBuilder) Build() (string, []any) {
	where, args := b.where()
	query := fmt.Sprintf(`
		SELECT id, kind, uri, name, created_at, COALESCE(updated_at, created_at)
		FROM dislikes
		%s
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, b.limit, b.Offset())
	return query, args
}

// BuildCount constructs the matching row count query
func (b *FindQueryBuilder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM dislikes " + where, args
}

// escapeLike escapes LIKE wildcards so the filter is a plain substring match
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
