package media

import "strings"

// NormalizeOutput flattens the output shapes image providers return (a bare
// URL string, a list of URLs, or an object carrying them under common keys)
// into a plain list of URLs.
func NormalizeOutput(raw any) []string {
	var urls []string
	collect := func(v any) {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				urls = append(urls, s)
			}
		}
	}

	switch v := raw.(type) {
	case nil:
	case string:
		collect(v)
	case []string:
		for _, item := range v {
			collect(item)
		}
	case []any:
		for _, item := range v {
			for _, u := range NormalizeOutput(item) {
				urls = append(urls, u)
			}
		}
	case map[string]any:
		for _, key := range []string{"url", "image_url", "output", "images", "urls"} {
			if nested, ok := v[key]; ok {
				for _, u := range NormalizeOutput(nested) {
					urls = append(urls, u)
				}
			}
		}
	}
	return urls
}
