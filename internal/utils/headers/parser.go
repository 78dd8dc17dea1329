package headers

import (
	"strings"
)

// ParseHeaders turns repeated "-H 'Name: Value'" flag values into the header
// map the image downloader attaches to every fetch. Some photo CDNs refuse
// requests without a Referer or cookie, so the run command lets callers
// supply them. Entries without a "Name: Value" shape are dropped; values may
// themselves contain colons (URLs, ports).
func ParseHeaders(flags []string) map[string]string {
	m := make(map[string]string)
	for _, raw := range flags {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m[name] = strings.TrimSpace(value)
	}
	return m
}
