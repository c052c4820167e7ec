package router

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func appTrie() *Trie[string] {
	return New(
		Route[string]{
			Path:   "app",
			Handle: func(m Match) string { return "A" },
			Children: []Route[string]{
				{
					Path:   "customers/{id}",
					Handle: func(m Match) string { return "B " + m.Params["id"] },
					Children: []Route[string]{
						{
							Path:   "orders",
							Handle: func(m Match) string { return "C " + m.Params["id"] },
						},
					},
				},
			},
		},
	)
}

func TestEnter(t *testing.T) {
	trie := appTrie()

	tests := []struct {
		path    string
		want    string
		matched bool
	}{
		{"/app/customers/123/orders", "C 123", true},
		{"/app/customers/123/", "B 123", true},
		{"/app/", "A", true},
		{"/unknown", "", false},
		{"/app/customers", "", false},
		{"/app/customers/123/orders/extra", "", false},
		{"app/customers/7/orders", "C 7", true},
		{"//app//customers//9//", "B 9", true},
	}
	for _, tt := range tests {
		got, ok := trie.Enter(tt.path)
		if ok != tt.matched || got != tt.want {
			t.Errorf("Enter(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.matched)
		}
	}
}

func TestDeclarationOrderWins(t *testing.T) {
	trie := New(
		Route[string]{Path: "{x}", Handle: func(m Match) string { return "param:" + m.Params["x"] }},
		Route[string]{Path: "a", Handle: func(Match) string { return "literal" }},
	)

	got, ok := trie.Enter("/a")
	if !ok || got != "param:a" {
		t.Errorf("Enter(/a) = %q, %v; want first-declared route to win", got, ok)
	}
}

func TestPrefixGroupWithoutHandler(t *testing.T) {
	trie := New(
		Route[string]{
			Path: "admin",
			Children: []Route[string]{
				{Path: "users", Handle: func(Match) string { return "users" }},
			},
		},
	)

	if _, ok := trie.Enter("/admin"); ok {
		t.Error("a node without a handler must not match on its own")
	}
	if got, ok := trie.Enter("/admin/users"); !ok || got != "users" {
		t.Errorf("Enter(/admin/users) = %q, %v; want users, true", got, ok)
	}
}

func TestParamsBindPerSegment(t *testing.T) {
	var captured map[string]string
	trie := New(
		Route[string]{
			Path: "users/{userID}/posts/{postID}",
			Handle: func(m Match) string {
				captured = m.Params
				return "ok"
			},
		},
	)

	if _, ok := trie.Enter("/users/7/posts/42"); !ok {
		t.Fatal("expected a match")
	}
	want := map[string]string{"userID": "7", "postID": "42"}
	if diff := cmp.Diff(want, captured); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestTagsAccumulateDownTheBranch(t *testing.T) {
	var captured map[string]bool
	trie := New(
		Route[string]{
			Path: "shop",
			Tags: []string{"shell"},
			Children: []Route[string]{
				{
					Path: "cart",
					Tags: []string{"authenticated"},
					Handle: func(m Match) string {
						captured = m.Tags
						return "cart"
					},
				},
			},
		},
	)

	if _, ok := trie.Enter("/shop/cart"); !ok {
		t.Fatal("expected a match")
	}
	want := map[string]bool{"shell": true, "authenticated": true}
	if diff := cmp.Diff(want, captured); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedBranchLeaksNothingIntoSiblings(t *testing.T) {
	var captured Match
	trie := New(
		Route[string]{
			Path: "root",
			Children: []Route[string]{
				{
					// Explored first: binds {section} and adds a tag, but
					// has no terminal handler, so the branch fails.
					Path: "{section}",
					Tags: []string{"poisoned"},
					Children: []Route[string]{
						{Path: "deep", Handle: func(Match) string { return "never" }},
					},
				},
				{
					Path: "settings",
					Tags: []string{"clean"},
					Handle: func(m Match) string {
						captured = m
						return "settings"
					},
				},
			},
		},
	)

	got, ok := trie.Enter("/root/settings")
	if !ok || got != "settings" {
		t.Fatalf("Enter = %q, %v; want settings, true", got, ok)
	}
	if diff := cmp.Diff(map[string]string{}, captured.Params); diff != "" {
		t.Errorf("sibling saw the failed branch's params (-want +got):\n%s", diff)
	}
	want := map[string]bool{"clean": true}
	if diff := cmp.Diff(want, captured.Tags); diff != "" {
		t.Errorf("sibling saw the failed branch's tags (-want +got):\n%s", diff)
	}
}

func TestMatchCarriesEnteredPath(t *testing.T) {
	var captured string
	trie := New(
		Route[string]{Path: "a/{x}", Handle: func(m Match) string {
			captured = m.Path
			return ""
		}},
	)

	trie.Enter("/a/b/")
	if captured != "/a/b/" {
		t.Errorf("Match.Path = %q, want the path as entered", captured)
	}
}

func TestRootPathRoute(t *testing.T) {
	trie := New(
		Route[string]{Path: "", Handle: func(Match) string { return "home" }},
		Route[string]{Path: "about", Handle: func(Match) string { return "about" }},
	)

	if got, ok := trie.Enter("/"); !ok || got != "home" {
		t.Errorf("Enter(/) = %q, %v; want home, true", got, ok)
	}
	if got, ok := trie.Enter("/about"); !ok || got != "about" {
		t.Errorf("Enter(/about) = %q, %v; want about, true", got, ok)
	}
}

func TestMalformedPatternsPanic(t *testing.T) {
	tests := []string{
		"users/{",
		"users/{}",
		"users/{id",
		"users/id}",
		"users/{id}x",
		"users/{a{b}}",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("New with path %q should panic", path)
				}
				if msg := fmt.Sprint(r); !strings.Contains(msg, "router:") {
					t.Errorf("panic %q should identify the router", msg)
				}
			}()
			New(Route[string]{Path: path, Handle: func(Match) string { return "" }})
		})
	}
}

func TestHandlerResultTypes(t *testing.T) {
	type page struct {
		name string
		id   string
	}
	trie := New(
		Route[page]{Path: "p/{id}", Handle: func(m Match) page {
			return page{name: "product", id: m.Params["id"]}
		}},
	)

	got, ok := trie.Enter("/p/5")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.name != "product" || got.id != "5" {
		t.Errorf("result = %+v", got)
	}
}
