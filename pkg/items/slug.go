package items

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	nonSlug   = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	multiDash = regexp.MustCompile(`-{2,}`)
)

// maxSlugAttempts bounds the search for a free suffixed slug.
const maxSlugAttempts = 100

// MakeSlug normalizes s into a lowercase, hyphenated path segment.
func MakeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '/' {
			return '-'
		}
		return r
	}, s)
	s = nonSlug.ReplaceAllString(s, "")
	s = multiDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// AppendID suffixes slug with "-id".
func AppendID(slug string, id int64) string {
	return slug + "-" + strconv.FormatInt(id, 10)
}

// SplitSlugID splits a "slug-id" path segment. ok is false when the segment
// does not end with a numeric identifier.
func SplitSlugID(segment string) (slug string, id int64, ok bool) {
	i := strings.LastIndexByte(segment, '-')
	if i < 0 {
		id, err := strconv.ParseInt(segment, 10, 64)
		return "", id, err == nil && id > 0
	}
	id, err := strconv.ParseInt(segment[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return segment, 0, false
	}
	return segment[:i], id, true
}

// SlugResolver makes canonical slugs unique within a language.
type SlugResolver struct {
	store Store
}

func NewSlugResolver(store Store) *SlugResolver {
	return &SlugResolver{store: store}
}

// Resolve returns candidate when no other canonical row of language uses it.
// On collision the disambiguator is appended; resolving a slug against the
// row that already owns it returns it unchanged.
func (r *SlugResolver) Resolve(ctx context.Context, candidate, language string, excludeID, disambiguator int64) (string, error) {
	if candidate == "" {
		return "", errors.New("empty slug")
	}
	taken, err := r.store.SlugTaken(ctx, candidate, language, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
	}
	if !taken {
		return candidate, nil
	}
	if disambiguator == 0 {
		disambiguator = excludeID
	}
	if disambiguator == 0 {
		return "", fmt.Errorf("slug %q is taken and no disambiguator is known", candidate)
	}

	resolved := AppendID(candidate, disambiguator)
	for n := 2; n <= maxSlugAttempts; n++ {
		taken, err = r.store.SlugTaken(ctx, resolved, language, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", resolved, err)
		}
		if !taken {
			return resolved, nil
		}
		resolved = AppendID(AppendID(candidate, disambiguator), int64(n))
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", candidate, maxSlugAttempts)
}
