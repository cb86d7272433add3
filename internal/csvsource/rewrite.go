package csvsource

import (
	"net/url"
	"strings"
)

// Rewrite replaces a URL host. From matches either host:port or the bare
// hostname; a bare-hostname match keeps the original port.
type Rewrite struct {
	From string
	To   string
}

// ParseHostRewrites reads "from=to" pairs separated by commas, for example
// "minio:9000=localhost:9000,minio=localhost". Malformed pairs are skipped.
func ParseHostRewrites(raw string) []Rewrite {
	var out []Rewrite
	for _, part := range strings.Split(raw, ",") {
		from, to, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" || to == "" {
			continue
		}
		out = append(out, Rewrite{From: from, To: to})
	}
	return out
}

// ApplyRewrites returns u with the first matching host rewrite applied.
func ApplyRewrites(u *url.URL, rewrites []Rewrite) *url.URL {
	if u == nil || len(rewrites) == 0 {
		return u
	}
	out := *u
	for _, rw := range rewrites {
		if strings.EqualFold(out.Host, rw.From) {
			out.Host = rw.To
			return &out
		}
	}
	hostname := out.Hostname()
	port := out.Port()
	for _, rw := range rewrites {
		if strings.Contains(rw.From, ":") || !strings.EqualFold(hostname, rw.From) {
			continue
		}
		if port != "" && !strings.Contains(rw.To, ":") {
			out.Host = rw.To + ":" + port
		} else {
			out.Host = rw.To
		}
		return &out
	}
	return &out
}
