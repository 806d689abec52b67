// Package access evaluates page and action grants encoded as integer
// bit-masks. The numeric values are a fixed contract with the web client
// and the grants tables; they must never be renumbered.
package access

// PageBit identifies a protected section of the product.
type PageBit int64

// Page constants. Each page owns one bit in Record.TotalPages.
const (
	PageInbox     PageBit = 1 << 0
	PageContacts  PageBit = 1 << 1
	PageKnowledge PageBit = 1 << 2
	PageDashboard PageBit = 1 << 3
	PageRequests  PageBit = 1 << 4
	PageHistory   PageBit = 1 << 5
	PageUsers     PageBit = 1 << 6
	PageSettings  PageBit = 1 << 7
)

// KnownPages lists every page bit in declaration order. AccessiblePages
// preserves this ordering, not numeric order.
var KnownPages = []PageBit{
	PageInbox,
	PageContacts,
	PageKnowledge,
	PageDashboard,
	PageRequests,
	PageHistory,
	PageUsers,
	PageSettings,
}

// ActionBit identifies an operation within a page. Values are only unique
// within a single page: ActionCreate on the inbox page and ActionCreate on
// the contacts page share the numeric value but are unrelated grants.
type ActionBit int64

// Action constants, interpreted against the owning page's mask.
const (
	ActionView   ActionBit = 1 << 0
	ActionCreate ActionBit = 1 << 1
	ActionEdit   ActionBit = 1 << 2
	ActionDelete ActionBit = 1 << 3
	ActionAssign ActionBit = 1 << 4
	ActionExport ActionBit = 1 << 5
)
