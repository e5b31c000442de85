// Package resolve turns a user-typed resource reference (an ID or a name)
// into an ID.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Named is any resource with an ID and display name.
type Named struct {
	ID   string
	Name string
}

// Match is a fuzzy match result with score.
type Match struct {
	ID    string
	Name  string
	Score int
}

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no items to match against")
)

// AmbiguousError indicates several candidates matched equally well.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Matches) > 0 {
		b.WriteString(", candidates:")
		for _, m := range e.Matches {
			_, _ = fmt.Fprintf(&b, "\n  %s: %s", m.ID, m.Name)
		}
	}
	return b.String()
}

// NotFoundError means nothing matched the reference.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no match found for %q", e.Query)
}

type namedSource []Named

func (s namedSource) String(i int) string { return strings.ToLower(s[i].Name) }
func (s namedSource) Len() int            { return len(s) }

// Resolve returns the ID for ref. An exact ID wins, then an exact
// case-insensitive name, then the single best fuzzy name match. Equal top
// fuzzy scores give *AmbiguousError.
func Resolve(ref string, items []Named) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	for _, item := range items {
		if item.ID == ref {
			return item.ID, nil
		}
	}

	var exact []Named
	for _, item := range items {
		if strings.EqualFold(item.Name, ref) {
			exact = append(exact, item)
		}
	}
	switch len(exact) {
	case 0:
	case 1:
		return exact[0].ID, nil
	default:
		matches := make([]Match, len(exact))
		for i, item := range exact {
			matches[i] = Match{ID: item.ID, Name: item.Name}
		}
		return "", &AmbiguousError{Query: ref, Matches: matches}
	}

	results := fuzzy.FindFrom(strings.ToLower(ref), namedSource(items))
	if len(results) == 0 {
		return "", &NotFoundError{Query: ref}
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{Query: ref, Matches: buildMatches(items, results, 5)}
	}
	return items[results[0].Index].ID, nil
}

// Suggest returns up to limit names ranked by score, best first.
func Suggest(query string, items []Named, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(items) == 0 || limit <= 0 {
		return nil
	}
	return buildMatches(items, fuzzy.FindFrom(strings.ToLower(query), namedSource(items)), limit)
}

func buildMatches(items []Named, results fuzzy.Matches, limit int) []Match {
	if len(results) == 0 || limit <= 0 {
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:    items[r.Index].ID,
			Name:  items[r.Index].Name,
			Score: r.Score,
		}
	}
	return matches
}
