package pages

// Change is the outcome of comparing two segmentations of a document.
// Invalidate means the page count changed and every page must be re-rendered;
// otherwise Pages holds the records (from the new list) whose content changed.
type Change struct {
	Invalidate bool
	Pages      List
}

// Diff compares old and fresh page by page. Only Content decides whether a
// page changed, so offset drift from edits in earlier pages is ignored.
func Diff(old, fresh List) Change {
	if len(old) != len(fresh) {
		return Change{Invalidate: true}
	}
	var changed List
	for i := range fresh {
		if old[i].Content != fresh[i].Content {
			changed = append(changed, fresh[i])
		}
	}
	return Change{Pages: changed}
}

// Empty reports whether the change carries nothing to re-render.
func (c Change) Empty() bool {
	return !c.Invalidate && len(c.Pages) == 0
}
