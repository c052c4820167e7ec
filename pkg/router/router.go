// Package router provides the declarative route trie used to dispatch
// paths to handlers.
//
// Routes are declared as nested literals; each node carries a path pattern
// relative to its parent, optional tags, and an optional handler:
//
//	r := router.New(
//	    router.Route[string]{Path: "app", Handle: appHome, Tags: []string{"shell"},
//	        Children: []router.Route[string]{
//	            {Path: "customers/{id}", Handle: customer},
//	            {Path: "customers/{id}/orders", Handle: orders},
//	        },
//	    },
//	)
//	result, ok := r.Enter("/app/customers/123/orders")
//
// Matching walks the tree: a node consumes its own segments (binding
// {name} parameters), then offers the remaining input to its children in
// declaration order; the first child to match wins. A fully consumed path
// matches only on a node with a handler. The handler receives the bound
// parameters and the union of tags declared from the root down to the
// matched node. Tags and parameters bound inside an explored branch that
// ultimately fails are never visible to sibling branches.
//
// Enter never fails with an error; an unmatched path just reports false.
// Malformed patterns are programmer errors and panic at construction.
package router

import (
	"fmt"
	"maps"
	"strings"
)

// Match carries the outcome of a successful path match into a handler.
type Match struct {
	// Path is the path as passed to Enter.
	Path string
	// Params maps {name} segments to the input values they bound.
	Params map[string]string
	// Tags is the union of the tags on the matched node and its ancestors.
	Tags map[string]bool
}

// HandlerFunc produces a route's result from a match.
type HandlerFunc[T any] func(Match) T

// Route declares one node of the trie. Paths are relative to the parent
// node; "customers/{id}" under "app" matches "/app/customers/…". A Route
// without a handler is a prefix group: it can match only through its
// children.
type Route[T any] struct {
	// Path is the node's pattern: slash-separated segments, where a
	// segment of the form {name} binds one input segment as a parameter.
	Path string

	// Tags accumulate: a handler sees its own node's tags plus all
	// ancestor tags.
	Tags []string

	// Handle produces the result when the path ends at this node.
	Handle HandlerFunc[T]

	// Children are tried in declaration order after this node's own
	// segments matched.
	Children []Route[T]
}

type segment struct {
	literal string
	param   string
}

type node[T any] struct {
	segments []segment
	tags     []string
	handler  HandlerFunc[T]
	children []*node[T]
}

// Trie is a compiled route tree. It is immutable after New and safe for
// concurrent use.
type Trie[T any] struct {
	roots []*node[T]
}

// New compiles the declared routes. It panics on a malformed pattern,
// such as an unterminated or empty {param} segment.
func New[T any](routes ...Route[T]) *Trie[T] {
	t := &Trie[T]{}
	for _, r := range routes {
		t.roots = append(t.roots, compile(r, ""))
	}
	return t
}

func compile[T any](r Route[T], prefix string) *node[T] {
	full := prefix + "/" + r.Path
	n := &node[T]{
		segments: parseSegments(r.Path, full),
		tags:     r.Tags,
		handler:  r.Handle,
	}
	for _, c := range r.Children {
		n.children = append(n.children, compile(c, full))
	}
	return n
}

func parseSegments(path, full string) []segment {
	var segs []segment
	for _, raw := range strings.Split(path, "/") {
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
			name := raw[1 : len(raw)-1]
			if name == "" || strings.ContainsAny(name, "{}") {
				panic(fmt.Sprintf("router: malformed parameter %q in route %q", raw, full))
			}
			segs = append(segs, segment{param: name})
			continue
		}
		if strings.ContainsAny(raw, "{}") {
			panic(fmt.Sprintf("router: malformed segment %q in route %q", raw, full))
		}
		segs = append(segs, segment{literal: raw})
	}
	return segs
}

// Enter matches path against the trie. On a match it invokes the matched
// node's handler and returns its result; otherwise it returns the zero
// value and false. Leading, trailing, and doubled slashes are
// insignificant.
func (t *Trie[T]) Enter(path string) (T, bool) {
	input := splitPath(path)
	for _, n := range t.roots {
		if v, ok := n.match(path, input, nil, nil); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// match consumes this node's segments from input and recurses into
// children with the rest. params and tags are copied before this branch
// extends them, so a failed branch leaks nothing into its siblings.
func (n *node[T]) match(path string, input []string, params map[string]string, tags []string) (T, bool) {
	var zero T
	if len(input) < len(n.segments) {
		return zero, false
	}

	branchParams := params
	cloned := false
	for i, seg := range n.segments {
		if seg.param == "" {
			if seg.literal != input[i] {
				return zero, false
			}
			continue
		}
		if !cloned {
			branchParams = maps.Clone(params)
			if branchParams == nil {
				branchParams = make(map[string]string)
			}
			cloned = true
		}
		branchParams[seg.param] = input[i]
	}

	branchTags := tags
	if len(n.tags) > 0 {
		branchTags = append(append(make([]string, 0, len(tags)+len(n.tags)), tags...), n.tags...)
	}

	rest := input[len(n.segments):]
	if len(rest) == 0 {
		if n.handler == nil {
			return zero, false
		}
		m := Match{Path: path, Params: branchParams, Tags: make(map[string]bool, len(branchTags))}
		if m.Params == nil {
			m.Params = map[string]string{}
		}
		for _, tag := range branchTags {
			m.Tags[tag] = true
		}
		return n.handler(m), true
	}

	for _, child := range n.children {
		if v, ok := child.match(path, rest, branchParams, branchTags); ok {
			return v, true
		}
	}
	return zero, false
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
