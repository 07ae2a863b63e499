package fsindex_test

import (
	"testing"

	"github.com/scmem/scmem/internal/fsindex"
	"github.com/scmem/scmem/internal/store"
)

func testConfig(t *testing.T) fsindex.Config {
	t.Helper()
	return fsindex.DefaultConfig(t.TempDir())
}

func TestSetAndGetLinkContentRoundTrip(t *testing.T) {
	idx, err := fsindex.Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	link := store.Addr{Seg: 1, Off: 1}
	if err := idx.SetLinkContent(link, []byte("old content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	if err := idx.SetLinkContent(link, []byte("new content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}

	got, err := idx.GetLinkContent(link)
	if err != nil {
		t.Fatalf("GetLinkContent: %v", err)
	}
	if string(got) != "new content" {
		t.Fatalf("GetLinkContent = %q, want %q", got, "new content")
	}

	// S5 in the old content must no longer resolve, the new one must.
	if found := idx.FindLinksByExactContent([]byte("new content")); len(found) != 1 || found[0] != link {
		t.Fatalf("expected exactly [link] for new content, got %v", found)
	}
	if found := idx.FindLinksByExactContent([]byte("old content")); len(found) != 0 {
		t.Fatalf("expected no links for overwritten content, got %v", found)
	}
}

func TestFindLinksBySubstringIntersectsTerms(t *testing.T) {
	idx, err := fsindex.Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	a := store.Addr{Seg: 1, Off: 1}
	b := store.Addr{Seg: 1, Off: 2}
	if err := idx.SetLinkContent(a, []byte("the cat sat on the mat")); err != nil {
		t.Fatalf("SetLinkContent a: %v", err)
	}
	if err := idx.SetLinkContent(b, []byte("the dog sat on the rug")); err != nil {
		t.Fatalf("SetLinkContent b: %v", err)
	}

	both := idx.FindLinksBySubstring([]byte("sat"))
	if len(both) != 2 {
		t.Fatalf("expected both links to match 'sat', got %v", both)
	}

	onlyA := idx.FindLinksBySubstring([]byte("cat sat"))
	if len(onlyA) != 1 || onlyA[0] != a {
		t.Fatalf("expected only a to match 'cat sat', got %v", onlyA)
	}
}

func TestSystemIdentifierResolution(t *testing.T) {
	idx, err := fsindex.Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	k := store.Addr{Seg: 2, Off: 5}
	if err := idx.SetSystemIdentifier("question_finished_successfully", k); err != nil {
		t.Fatalf("SetSystemIdentifier: %v", err)
	}
	got, err := idx.ResolveSystemIdentifier("question_finished_successfully")
	if err != nil || got != k {
		t.Fatalf("ResolveSystemIdentifier = %v, %v; want %v, nil", got, err, k)
	}

	if _, err := idx.ResolveSystemIdentifier("does_not_exist"); err == nil {
		t.Fatalf("expected not_found error for unknown identifier")
	}

	matches := idx.ResolveSystemIdentifierFuzzy("question_finished_succesfully", 3)
	if len(matches) == 0 || matches[0].Identifier != "question_finished_successfully" {
		t.Fatalf("expected fuzzy match to rank the correct identifier first, got %+v", matches)
	}
}

func TestReopenRestoresIndexFromManifest(t *testing.T) {
	cfg := testConfig(t)
	link := store.Addr{Seg: 3, Off: 7}

	idx, err := fsindex.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.SetLinkContent(link, []byte("persisted content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := fsindex.Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetLinkContent(link)
	if err != nil {
		t.Fatalf("GetLinkContent after reopen: %v", err)
	}
	if string(got) != "persisted content" {
		t.Fatalf("GetLinkContent after reopen = %q", got)
	}
	if found := reopened.FindLinksByExactContent([]byte("persisted content")); len(found) != 1 {
		t.Fatalf("expected exact-match trie to be rebuilt from manifest, got %v", found)
	}
}

func TestCheckWritableSucceedsOnFreshIndex(t *testing.T) {
	idx, err := fsindex.Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.CheckWritable(); err != nil {
		t.Fatalf("CheckWritable: %v", err)
	}
}

func TestCheckWritableDoesNotDisturbStoredContent(t *testing.T) {
	idx, err := fsindex.Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	link := store.Addr{Seg: 1, Off: 1}
	if err := idx.SetLinkContent(link, []byte("untouched")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	if err := idx.CheckWritable(); err != nil {
		t.Fatalf("CheckWritable: %v", err)
	}

	got, err := idx.GetLinkContent(link)
	if err != nil {
		t.Fatalf("GetLinkContent: %v", err)
	}
	if string(got) != "untouched" {
		t.Fatalf("GetLinkContent after CheckWritable = %q, want %q", got, "untouched")
	}
}
