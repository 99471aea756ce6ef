package deployment

// CleanNullTerms returns a copy of data without nil values and without
// nested maps that end up empty. Maps inside lists are cleaned as well but
// list elements are never dropped. Applying it twice gives the same result
// as applying it once.
func CleanNullTerms(data map[string]any) map[string]any {
	clean := make(map[string]any, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]any:
			nested := CleanNullTerms(v)
			if len(nested) > 0 {
				clean[key] = nested
			}
		case []any:
			clean[key] = cleanList(v)
		default:
			clean[key] = value
		}
	}
	return clean
}

func cleanList(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out[i] = CleanNullTerms(v)
		case []any:
			out[i] = cleanList(v)
		default:
			out[i] = item
		}
	}
	return out
}
