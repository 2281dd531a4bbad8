package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/haydnphilipdesign/coversheet-service/pkg/template"
)

// timestampReplacer turns an ISO-8601 timestamp into something filesystem
// and object-store safe.
var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// DocumentFilename builds the artifact name:
// {Prefix}_{Role}_{Identifier}_{timestamp}.pdf with the timestamp's ':' and
// '.' replaced by '-'. The timestamp plus identifier is the sole collision
// avoidance between concurrent requests; two requests in the same millisecond
// stay distinct as long as their identifiers differ.
func DocumentFilename(prefix string, role template.Role, identifier string, now time.Time) string {
	if prefix == "" {
		prefix = "CoverSheet"
	}
	ts := timestampReplacer.Replace(now.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	return fmt.Sprintf("%s_%s_%s_%s.pdf", prefix, role, sanitizeIdentifier(identifier), ts)
}

// sanitizeIdentifier keeps letters, digits and dashes so record IDs and
// address fragments are both usable.
func sanitizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == ',' || r == '.':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	if len(out) > 48 {
		out = out[:48]
	}
	return out
}
