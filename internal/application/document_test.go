package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haydnphilipdesign/coversheet-service/pkg/template"
)

func TestDocumentFilename(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 8, 30, 14, 5, 9, 123_000_000, time.UTC)
	name := DocumentFilename("CoverSheet", template.RoleBuyersAgent, "recABC123", at)

	assert.Equal(t, "CoverSheet_BUYERS_AGENT_recABC123_2026-08-30T14-05-09-123Z.pdf", name)
}

func TestDocumentFilename_DefaultsAndSanitization(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	name := DocumentFilename("", template.RoleDualAgent, "123 Main St, Unit #4", at)
	assert.Contains(t, name, "CoverSheet_DUAL_AGENT_123-Main-St--Unit-4_")
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "#")

	name = DocumentFilename("CoverSheet", template.RoleListingAgent, "", at)
	assert.Contains(t, name, "_unknown_")
}

func TestDocumentFilename_DistinctIdentifiersSameInstant(t *testing.T) {
	t.Parallel()

	// Known collision risk: identical role + identifier in the same
	// millisecond collide by design; distinct identifiers must not.
	at := time.Now().UTC()
	a := DocumentFilename("CoverSheet", template.RoleBuyersAgent, "recAAA", at)
	b := DocumentFilename("CoverSheet", template.RoleBuyersAgent, "recBBB", at)

	assert.NotEqual(t, a, b)
}
