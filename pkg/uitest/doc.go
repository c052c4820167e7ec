// Package uitest provides the in-memory host used to test component
// trees: a markup.Builder/Node implementation, a manually fired
// finalizer, and a harness that owns the scheduler and pumps frames.
//
// Create a harness, build a root component against it, and pump:
//
//	func TestCounter(t *testing.T) {
//	    h := uitest.NewHarness(t)
//	    c := newCounter(h)
//	    if _, err := c.RenderTo(h.Doc.Builder()); err != nil {
//	        t.Fatal(err)
//	    }
//
//	    c.increment()
//	    h.Pump()
//
//	    if got := h.Doc.Body().Dump(); got != `<body><div>1</div></body>` {
//	        t.Errorf("tree = %s", got)
//	    }
//	}
//
// The finalizer never depends on the collector: Collect fires the hooks
// registered for a node on demand, so the finalization destroy path is
// as deterministic as the explicit one.
package uitest
