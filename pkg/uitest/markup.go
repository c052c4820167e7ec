package uitest

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/go-weft/weft/pkg/markup"
)

var (
	_ markup.Builder = (*builder)(nil)
	_ markup.Node    = (*Node)(nil)
)

// Document is an in-memory implementation of the markup contract. All
// nodes of one document share a single mutex, so concurrent access from
// test goroutines is safe.
type Document struct {
	mu   sync.Mutex
	body *Node
}

// NewDocument creates a document with an empty body.
func NewDocument() *Document {
	d := &Document{}
	d.body = &Node{d: d, tag: "body"}
	return d
}

// Body returns the document's root container node.
func (d *Document) Body() *Node { return d.body }

// Builder returns a builder appending into the document body.
func (d *Document) Builder() markup.Builder {
	return &builder{d: d, target: d.body}
}

// Node is one element (or text) in a Document. It implements
// markup.Node.
type Node struct {
	d     *Document
	tag   string // empty for text nodes
	text  string
	attrs markup.Attrs

	children []*Node
	owner    any
}

// Tag returns the element tag, or the empty string for a text node.
func (n *Node) Tag() string { return n.tag }

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.tag == "" }

// Text returns a text node's content, or "" for elements.
func (n *Node) Text() string { return n.text }

// ChildCount returns the number of direct children, text nodes included.
func (n *Node) ChildCount() int {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	return len(n.children)
}

// Child returns the i'th direct child.
func (n *Node) Child(i int) *Node {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	return n.children[i]
}

// RemoveChild removes the direct child at index i.
func (n *Node) RemoveChild(i int) {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	n.children = slices.Delete(n.children, i, i+1)
}

// Rebuild returns a builder appending into this node.
func (n *Node) Rebuild() markup.Builder {
	return &builder{d: n.d, target: n}
}

// BindOwner attaches a back-reference from the node to owner.
func (n *Node) BindOwner(owner any) {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	n.owner = owner
}

// Owner returns the value bound with BindOwner, or nil.
func (n *Node) Owner() any {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	return n.owner
}

// Attr returns one attribute value.
func (n *Node) Attr(name string) string { return n.attrs[name] }

// InnerText concatenates the text nodes under n, depth first.
func (n *Node) InnerText() string {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	var sb strings.Builder
	n.innerText(&sb)
	return sb.String()
}

func (n *Node) innerText(sb *strings.Builder) {
	if n.IsText() {
		sb.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		c.innerText(sb)
	}
}

// Find returns the nodes under n (n excluded, depth first) satisfying
// pred.
func (n *Node) Find(pred func(*Node) bool) []*Node {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.children {
			if pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByTag matches element nodes with the given tag.
func ByTag(tag string) func(*Node) bool {
	return func(n *Node) bool { return n.tag == tag }
}

// Dump renders the subtree as a compact HTML-like string, attributes in
// sorted order. It is meant for test assertions, not for serving.
func (n *Node) Dump() string {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	var sb strings.Builder
	n.dump(&sb)
	return sb.String()
}

func (n *Node) dump(sb *strings.Builder) {
	if n.IsText() {
		sb.WriteString(n.text)
		return
	}
	sb.WriteString("<")
	sb.WriteString(n.tag)
	for _, k := range slices.Sorted(maps.Keys(n.attrs)) {
		fmt.Fprintf(sb, " %s=%q", k, n.attrs[k])
	}
	sb.WriteString(">")
	for _, c := range n.children {
		c.dump(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.tag)
	sb.WriteString(">")
}

type builder struct {
	d       *Document
	target  *Node
	emitted bool
}

func (b *builder) Element(tag string, attrs markup.Attrs, content func(markup.Builder) error) (markup.Node, error) {
	if tag == "" {
		return nil, fmt.Errorf("uitest: element needs a tag")
	}
	n := &Node{d: b.d, tag: tag, attrs: maps.Clone(attrs)}
	if content != nil {
		nested := &builder{d: b.d, target: n}
		if err := content(nested); err != nil {
			// A failed element leaves no trace in the document.
			return nil, err
		}
	}
	b.d.mu.Lock()
	b.target.children = append(b.target.children, n)
	b.d.mu.Unlock()
	b.emitted = true
	return n, nil
}

func (b *builder) Text(text string) error {
	n := &Node{d: b.d, text: text}
	b.d.mu.Lock()
	b.target.children = append(b.target.children, n)
	b.d.mu.Unlock()
	b.emitted = true
	return nil
}

func (b *builder) Close() error {
	if !b.emitted {
		return markup.ErrEmptyRender
	}
	return nil
}
