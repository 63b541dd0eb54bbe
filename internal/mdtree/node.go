package mdtree

import "strings"

// Kind enumerates node types.
type Kind int

const (
	KindRoot Kind = iota
	KindText
	KindImage
	KindLink
	KindCode
	KindRaw
	KindFrontmatter
)

var kindNames = [...]string{
	KindRoot:        "Root",
	KindText:        "Text",
	KindImage:       "Image",
	KindLink:        "Link",
	KindCode:        "Code",
	KindRaw:         "Raw",
	KindFrontmatter: "Frontmatter",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Node is implemented by the pointer types of this package only.
type Node interface {
	Kind() Kind
}

// Parent is a node with children: *Root and *Link.
type Parent interface {
	Node
	Children() []Node
	SetChildren([]Node)
}

// Root is the top of a tree.
type Root struct {
	Nodes []Node
}

// Text is markdown emitted as is.
type Text struct {
	Value string
}

// Image is an inline image. Source holds the original markdown of a parsed
// image; Render prefers it while set, so clear it after editing fields.
type Image struct {
	URL    string
	Alt    string
	Title  string
	Source string
}

// Link is an inline link. Its text is held as children and it is always
// serialized from its fields.
type Link struct {
	URL   string
	Title string
	Nodes []Node
}

// Code is a root-level fenced code block. Source works as for Image.
type Code struct {
	Lang   string
	Meta   string
	Value  string
	Source string
}

// Raw is markup emitted verbatim, typically HTML.
type Raw struct {
	Value string
}

// Frontmatter is the leading metadata block. Value is the raw block fences
// included, Body the YAML between them.
type Frontmatter struct {
	Value string
	Body  string
}

func (*Root) Kind() Kind        { return KindRoot }
func (*Text) Kind() Kind        { return KindText }
func (*Image) Kind() Kind       { return KindImage }
func (*Link) Kind() Kind        { return KindLink }
func (*Code) Kind() Kind        { return KindCode }
func (*Raw) Kind() Kind         { return KindRaw }
func (*Frontmatter) Kind() Kind { return KindFrontmatter }

func (r *Root) Children() []Node         { return r.Nodes }
func (r *Root) SetChildren(nodes []Node) { r.Nodes = nodes }
func (l *Link) Children() []Node         { return l.Nodes }
func (l *Link) SetChildren(nodes []Node) { l.Nodes = nodes }

// Append adds nodes to the end of the root.
func (r *Root) Append(nodes ...Node) {
	r.Nodes = append(r.Nodes, nodes...)
}

// Prepend inserts nodes at the start of the root.
func (r *Root) Prepend(nodes ...Node) {
	r.Nodes = append(append([]Node(nil), nodes...), r.Nodes...)
}

// Plain returns the concatenated text of a link's Text children.
func (l *Link) Plain() string {
	var b strings.Builder
	for _, n := range l.Nodes {
		if t, ok := n.(*Text); ok {
			b.WriteString(t.Value)
		}
	}
	return b.String()
}
