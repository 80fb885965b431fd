package registry

import (
	"errors"
	"testing"
)

func TestOpenScenario(t *testing.T) {
	r := New(nil)

	id := r.Open("a.py", "print(1)", "python", "")

	doc, ok := r.Get(id)
	if !ok {
		t.Fatal("Get() did not find the opened document")
	}
	if doc.Filename != "a.py" {
		t.Errorf("Filename = %q, want a.py", doc.Filename)
	}
	if doc.Dirty() {
		t.Error("freshly opened document should be clean")
	}

	r.UpdateContent(id, "print(2)")
	doc, _ = r.Get(id)
	if !doc.Dirty() {
		t.Error("document should be dirty after edit")
	}

	r.MarkSaved(id, "print(2)")
	doc, _ = r.Get(id)
	if doc.Dirty() {
		t.Error("document should be clean after MarkSaved")
	}
	if doc.OriginalContent != "print(2)" {
		t.Errorf("OriginalContent = %q, want print(2)", doc.OriginalContent)
	}
}

func TestOpenActivates(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "aaa", "", "")
	if r.ActiveID() != a {
		t.Errorf("ActiveID = %d, want %d", r.ActiveID(), a)
	}

	b := r.Open("b.txt", "bbb", "", "")
	if r.ActiveID() != b {
		t.Errorf("ActiveID = %d after second open, want %d", r.ActiveID(), b)
	}
}

func TestIDsMonotonic(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "", "", "")
	b := r.Open("b.txt", "", "", "")
	if err := r.Close(b, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	c := r.Open("c.txt", "", "", "")

	if c <= b || b <= a {
		t.Errorf("ids not monotonic: a=%d b=%d c=%d", a, b, c)
	}
}

func TestActivateFlushesOutgoing(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "original", "", "")
	b := r.Open("b.txt", "bbb", "", "")

	// b is active; switch back to a flushing b's live editor text
	r.Activate(a, "bbb edited live")

	docB, _ := r.Get(b)
	if docB.Content != "bbb edited live" {
		t.Errorf("outgoing content = %q, want the live editor text", docB.Content)
	}
	if !docB.Dirty() {
		t.Error("outgoing document should be dirty after flush of edited text")
	}
	if r.ActiveID() != a {
		t.Errorf("ActiveID = %d, want %d", r.ActiveID(), a)
	}
}

func TestActivateUnknownIsNoOp(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "aaa", "", "")
	r.Activate(DocumentID(999), "should not be flushed anywhere")

	if r.ActiveID() != a {
		t.Errorf("ActiveID moved on unknown Activate: %d", r.ActiveID())
	}
	doc, _ := r.Get(a)
	if doc.Content != "aaa" {
		t.Errorf("content mutated on unknown Activate: %q", doc.Content)
	}
}

func TestCloseDirtyRequiresForce(t *testing.T) {
	r := New(nil)

	id := r.Open("a.txt", "aaa", "", "")
	r.UpdateContent(id, "changed")

	err := r.Close(id, false)
	if !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("Close() error = %v, want ErrUnsavedChanges", err)
	}
	if _, ok := r.Get(id); !ok {
		t.Fatal("document removed despite refused close")
	}
	if r.ActiveID() != id {
		t.Error("active pointer mutated by refused close")
	}

	if err := r.Close(id, true); err != nil {
		t.Fatalf("forced Close() error = %v", err)
	}
	if _, ok := r.Get(id); ok {
		t.Error("document still present after forced close")
	}
}

func TestCloseActivatesMostRecent(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "", "", "")
	b := r.Open("b.txt", "", "", "")
	c := r.Open("c.txt", "", "", "")

	if err := r.Close(c, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.ActiveID() != b {
		t.Errorf("ActiveID = %d, want most-recently-opened %d", r.ActiveID(), b)
	}

	if err := r.Close(b, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.ActiveID() != a {
		t.Errorf("ActiveID = %d, want %d", r.ActiveID(), a)
	}

	if err := r.Close(a, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.ActiveID() != 0 {
		t.Errorf("ActiveID = %d after last close, want 0", r.ActiveID())
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want empty registry", r.Len())
	}
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "", "", "")
	b := r.Open("b.txt", "", "", "")

	if err := r.Close(a, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.ActiveID() != b {
		t.Errorf("ActiveID = %d, want untouched %d", r.ActiveID(), b)
	}
}

func TestRenameSameNameIsNoOp(t *testing.T) {
	r := New(nil)

	id := r.Open("a.py", "x", "", "handle-1")
	r.SetLanguage(id, "ruby")

	r.Rename(id, "a.py")

	doc, _ := r.Get(id)
	if doc.HandleID != "handle-1" {
		t.Error("handle invalidated by rename to same name")
	}
	if doc.Language != "ruby" || !doc.LanguagePinned {
		t.Error("language pin lost on rename to same name")
	}
	if doc.Dirty() {
		t.Error("dirty flag changed by rename to same name")
	}
}

func TestRenameReinfersAndInvalidatesHandle(t *testing.T) {
	r := New(nil)

	id := r.Open("a.py", "x", "", "handle-1")
	r.Rename(id, "a.md")

	doc, _ := r.Get(id)
	if doc.Filename != "a.md" {
		t.Errorf("Filename = %q, want a.md", doc.Filename)
	}
	if doc.Language != "markdown" {
		t.Errorf("Language = %q, want markdown", doc.Language)
	}
	if doc.HandleID != "" {
		t.Error("handle should be invalidated by a real rename")
	}
}

func TestRenameClearsLanguagePin(t *testing.T) {
	r := New(nil)

	id := r.Open("a.py", "x", "", "")
	r.SetLanguage(id, "ruby")

	doc, _ := r.Get(id)
	if doc.Language != "ruby" || !doc.LanguagePinned {
		t.Fatalf("SetLanguage not applied: %+v", doc)
	}

	r.Rename(id, "b.go")
	doc, _ = r.Get(id)
	if doc.Language != "go" {
		t.Errorf("Language = %q after rename, want re-inferred go", doc.Language)
	}
	if doc.LanguagePinned {
		t.Error("pin should be cleared by rename")
	}
}

func TestOrphanHandle(t *testing.T) {
	r := New(nil)

	a := r.Open("a.txt", "x", "", "h1")
	b := r.Open("b.txt", "y", "", "h2")

	orphaned := r.OrphanHandle("h1")
	if len(orphaned) != 1 || orphaned[0] != a {
		t.Fatalf("OrphanHandle() = %v, want [%d]", orphaned, a)
	}

	docA, _ := r.Get(a)
	if !docA.Virtual() {
		t.Error("orphaned document should be virtual")
	}
	docB, _ := r.Get(b)
	if docB.HandleID != "h2" {
		t.Error("unrelated document lost its handle")
	}
}

func TestDirtyDerivedAfterEveryOp(t *testing.T) {
	r := New(nil)

	id := r.Open("a.go", "package main", "", "")
	checks := func(label string) {
		doc, _ := r.Get(id)
		if doc.Dirty() != (doc.Content != doc.OriginalContent) {
			t.Errorf("%s: dirty derivation broken: %+v", label, doc)
		}
	}

	checks("open")
	r.UpdateContent(id, "package main\n\nfunc main() {}")
	checks("edit")
	r.Rename(id, "b.go")
	checks("rename")
	r.MarkSaved(id, "package main\n\nfunc main() {}")
	checks("markSaved")
	r.Activate(id, "package main\n")
	checks("activate")
}

func TestInferLanguage(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"main.go", "go"},
		{"app.PY", "python"},
		{"notes.md", "markdown"},
		{"index.html", "html"},
		{"style.css", "css"},
		{"weird.zzz", DefaultLanguage},
		{"Makefile", DefaultLanguage},
	}

	for _, tc := range cases {
		if got := InferLanguage(tc.filename); got != tc.want {
			t.Errorf("InferLanguage(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}
