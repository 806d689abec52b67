package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPageAccess(t *testing.T) {
	mask := PageInbox | PageDashboard

	assert.True(t, HasPageAccess(mask, PageInbox))
	assert.True(t, HasPageAccess(mask, PageDashboard))
	assert.False(t, HasPageAccess(mask, PageContacts))
	assert.False(t, HasPageAccess(mask, PageUsers))
	assert.False(t, HasPageAccess(0, PageInbox))

	// Unknown bits never match a mask that does not alias them.
	assert.False(t, HasPageAccess(mask, 1<<40))
}

func TestHasActionAccessNoMatchingEntry(t *testing.T) {
	perms := []PagePermission{
		{PageValue: PageContacts, TotalValue: ActionView | ActionEdit},
	}
	assert.False(t, HasActionAccess(perms, PageInbox, ActionView))
	assert.False(t, HasActionAccess(nil, PageInbox, ActionView))
}

func TestHasActionAccessMatchingEntry(t *testing.T) {
	perms := []PagePermission{
		{PageValue: PageInbox, TotalValue: ActionView | ActionCreate},
		{PageValue: PageContacts, TotalValue: ActionView},
	}

	assert.True(t, HasActionAccess(perms, PageInbox, ActionView))
	assert.True(t, HasActionAccess(perms, PageInbox, ActionCreate))
	assert.False(t, HasActionAccess(perms, PageInbox, ActionDelete))
	assert.True(t, HasActionAccess(perms, PageContacts, ActionView))
	assert.False(t, HasActionAccess(perms, PageContacts, ActionEdit))
}

// HasActionAccess must not consult the page mask: an action entry for a
// page the principal cannot view still answers from its own mask. The
// page-then-action composition lives in Record.CanPerform and the guards.
func TestHasActionAccessIgnoresPageMask(t *testing.T) {
	perms := []PagePermission{
		{PageValue: PageUsers, TotalValue: ActionEdit},
	}
	// No totalPages involved at all; the entry alone decides.
	assert.True(t, HasActionAccess(perms, PageUsers, ActionEdit))

	record := Record{TotalPages: 0, Permissions: perms}
	assert.False(t, record.CanPerform(PageUsers, ActionEdit), "CanPerform must deny when the page bit is unset")
}

func TestAccessiblePagesDeclarationOrder(t *testing.T) {
	mask := PageUsers | PageInbox | PageDashboard
	pages := AccessiblePages(mask)
	require.Equal(t, []PageBit{PageInbox, PageDashboard, PageUsers}, pages)

	assert.Empty(t, AccessiblePages(0))
	assert.Equal(t, KnownPages, AccessiblePages(PageInbox|PageContacts|PageKnowledge|PageDashboard|PageRequests|PageHistory|PageUsers|PageSettings))
}

func TestAbsenceConvention(t *testing.T) {
	var record *Record

	// Absent record: unrestricted.
	assert.True(t, record.CanViewPage(PageUsers))
	assert.True(t, record.CanPerform(PageUsers, ActionDelete))

	// Present but empty record: everything denied.
	record = &Record{}
	for _, page := range KnownPages {
		assert.False(t, record.CanViewPage(page))
		assert.False(t, record.CanPerform(page, ActionView))
	}
}

func TestCanPerformComposesPageThenAction(t *testing.T) {
	record := &Record{
		TotalPages: PageInbox | PageContacts,
		Permissions: []PagePermission{
			{PageValue: PageInbox, TotalValue: ActionView | ActionCreate},
		},
	}

	assert.True(t, record.CanPerform(PageInbox, ActionCreate))
	// Page granted, no action entry.
	assert.False(t, record.CanPerform(PageContacts, ActionView))
	// Action entry present for an unviewable page is still denied.
	record.Permissions = append(record.Permissions, PagePermission{PageValue: PageUsers, TotalValue: ActionEdit})
	assert.False(t, record.CanPerform(PageUsers, ActionEdit))
}
