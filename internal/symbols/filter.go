package symbols

import "sort"

// AvailableFilters lists the distinct values per metadata attribute across
// the given metadata set, values sorted for stable presentation.
func AvailableFilters(metadata map[string]map[string]string) map[string][]string {
	values := make(map[string]map[string]struct{})
	for _, attrs := range metadata {
		for name, value := range attrs {
			if value == "" {
				continue
			}
			if values[name] == nil {
				values[name] = make(map[string]struct{})
			}
			values[name][value] = struct{}{}
		}
	}

	out := make(map[string][]string, len(values))
	for name, set := range values {
		list := make([]string, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		sort.Strings(list)
		out[name] = list
	}
	return out
}

// ApplyFilters keeps the symbols whose metadata matches every selection.
// An empty selection for an attribute means "any value". Symbols without
// metadata are dropped as soon as any filter is active. Input order is
// preserved.
func ApplyFilters(symbols []string, metadata map[string]map[string]string, selections map[string][]string) []string {
	active := false
	for _, wanted := range selections {
		if len(wanted) > 0 {
			active = true
			break
		}
	}
	if !active {
		return append([]string(nil), symbols...)
	}

	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		attrs, ok := metadata[symbol]
		if !ok {
			continue
		}
		if matchesAll(attrs, selections) {
			out = append(out, symbol)
		}
	}
	return out
}

func matchesAll(attrs map[string]string, selections map[string][]string) bool {
	for name, wanted := range selections {
		if len(wanted) == 0 {
			continue
		}
		value := attrs[name]
		found := false
		for _, w := range wanted {
			if value == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
