package access

// PagePermission pairs a page bit with the mask of actions granted on it.
type PagePermission struct {
	PageValue  PageBit   `json:"page_value"`
	TotalValue ActionBit `json:"total_value"`
}

// Record is the immutable permission snapshot attached to a principal at
// login. A nil Record means "no restrictions" by convention (account
// owners carry no grant rows at all); a non-nil Record with unset bits
// means "denied". Callers must preserve that distinction.
type Record struct {
	TotalPages  PageBit          `json:"total_pages"`
	Permissions []PagePermission `json:"permissions"`
}

// HasPageAccess reports whether pageBit is set in totalPages. No
// validation is performed on pageBit; unknown bits simply never match.
func HasPageAccess(totalPages, pageBit PageBit) bool {
	return totalPages&pageBit != 0
}

// HasActionAccess reports whether actionBit is granted on the entry whose
// PageValue equals pageBit. The list is scanned linearly; it holds at most
// one entry per page and stays small (under ~20 entries).
//
// This function does not re-check page-level access. Callers must check
// HasPageAccess first; the guard helpers below compose the two in the
// required page-then-action order.
func HasActionAccess(perms []PagePermission, pageBit PageBit, actionBit ActionBit) bool {
	for _, p := range perms {
		if p.PageValue == pageBit {
			return p.TotalValue&actionBit != 0
		}
	}
	return false
}

// AccessiblePages filters KnownPages to those set in totalPages,
// preserving declaration order.
func AccessiblePages(totalPages PageBit) []PageBit {
	pages := make([]PageBit, 0, len(KnownPages))
	for _, page := range KnownPages {
		if HasPageAccess(totalPages, page) {
			pages = append(pages, page)
		}
	}
	return pages
}

// CanViewPage applies the absence convention: a nil record is
// unrestricted, otherwise the page bit must be set.
func (r *Record) CanViewPage(page PageBit) bool {
	if r == nil {
		return true
	}
	return HasPageAccess(r.TotalPages, page)
}

// CanPerform composes the page check and the action check in that order.
// A nil record is unrestricted.
func (r *Record) CanPerform(page PageBit, action ActionBit) bool {
	if r == nil {
		return true
	}
	if !HasPageAccess(r.TotalPages, page) {
		return false
	}
	return HasActionAccess(r.Permissions, page, action)
}
