package symbols

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Provider supplies the ordered symbol list for a build.
type Provider interface {
	Symbols(ctx context.Context) ([]string, error)
}

// ParseSymbols extracts ticker symbols from free-form text. Commas,
// semicolons and any whitespace separate entries. Symbols are uppercased
// and deduplicated preserving first-seen order.
func ParseSymbols(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		s := strings.ToUpper(strings.TrimSpace(f))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Static is a fixed symbol list.
type Static []string

// FromText parses free-form text into a Static provider.
func FromText(text string) Static {
	return Static(ParseSymbols(text))
}

// Symbols returns a copy of the list.
func (s Static) Symbols(_ context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// FileProvider reads a symbol list from a text file, one or more symbols
// per line in the same free-form format ParseSymbols accepts.
type FileProvider struct {
	Path string
}

// Symbols reads and parses the file.
func (f FileProvider) Symbols(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read symbol file: %w", err)
	}
	return ParseSymbols(string(data)), nil
}

// ListProvider resolves a named watchlist from the repository.
type ListProvider struct {
	Repo *Repository
	Name string
}

// Symbols loads the watchlist.
func (l ListProvider) Symbols(ctx context.Context) ([]string, error) {
	return l.Repo.GetList(ctx, l.Name)
}
