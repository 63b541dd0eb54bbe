package pages

// Record is one page of a document: the source slice between two separators.
// Start and End are byte offsets into the document, End exclusive.
type Record struct {
	Page       int
	Start      int
	End        int
	Content    string
	IsUpdate   bool
	SourcePath string
}

// Len returns the length of the page's source slice.
func (r Record) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset falls inside the page, both ends included.
func (r Record) Contains(offset int) bool {
	return r.Start <= offset && offset <= r.End
}

// List is an ordered page list. List[i].Page == i.
type List []Record

// Clone returns a copy that shares no backing array with l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Locate returns the first page containing offset.
func (l List) Locate(offset int) (Record, bool) {
	for _, r := range l {
		if r.Contains(offset) {
			return r, true
		}
	}
	return Record{}, false
}

// Contents returns each page's content in order.
func (l List) Contents() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.Content
	}
	return out
}
