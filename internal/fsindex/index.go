package fsindex

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
)

// entry is the in-memory record of one link's stored content.
type entry struct {
	Content    []byte
	Channel    uint32
	Offset     int64
	Length     int64
	Searchable bool
}

// Index is the file-backed string-content index (component C).
type Index struct {
	mu  sync.RWMutex
	cfg Config
	log *slog.Logger

	exact *trie // content bytes -> link addrs
	terms *trie // token bytes -> link addrs

	byLink map[store.Addr]*entry

	sysIdtf    map[string]store.Addr
	sysIdtfRev map[store.Addr]string

	channels []*channel
}

// Open initialises the index rooted at cfg.RepoPath, clearing it first if
// cfg.Clear is set, and otherwise replaying the persisted manifest to
// reconstruct the exact-match and terms tries.
func Open(cfg Config, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TermSeparators == "" {
		cfg.TermSeparators = defaultTermSeparators
	}

	if cfg.Clear {
		if err := os.RemoveAll(cfg.RepoPath); err != nil {
			return nil, scerr.New(scerr.IO, "fsindex.Open", err)
		}
	}
	if err := os.MkdirAll(cfg.RepoPath, 0o755); err != nil {
		return nil, scerr.New(scerr.IO, "fsindex.Open", err)
	}

	idx := &Index{
		cfg:        cfg,
		log:        logger,
		exact:      newByteTrie(),
		terms:      newByteTrie(),
		byLink:     make(map[store.Addr]*entry),
		sysIdtf:    make(map[string]store.Addr),
		sysIdtfRev: make(map[store.Addr]string),
	}

	m, err := loadManifest(cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	if err := idx.restore(m); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) restore(m *manifest) error {
	opened := make(map[uint32]*channel, len(m.Channels))
	for _, cm := range m.Channels {
		ch, err := openChannel(idx.cfg.RepoPath, cm.ID)
		if err != nil {
			return err
		}
		opened[cm.ID] = ch
		idx.channels = append(idx.channels, ch)
	}

	for _, me := range m.Entries {
		ch, ok := opened[me.Channel]
		if !ok {
			return scerr.New(scerr.IO, "fsindex.restore", fmt.Errorf("entry references unknown channel %d", me.Channel))
		}
		content, err := ch.readAt(me.Offset, me.Length)
		if err != nil {
			return err
		}
		link := store.Addr{Seg: me.LinkSeg, Off: me.LinkOff}
		e := &entry{Content: content, Channel: me.Channel, Offset: me.Offset, Length: me.Length, Searchable: me.Searchable}
		idx.byLink[link] = e
		idx.exact.insert(content, link)
		if me.Searchable {
			for _, tok := range tokenize(string(content), idx.cfg.TermSeparators) {
				idx.terms.insert([]byte(tok), link)
			}
		}
	}

	for _, mi := range m.Identifiers {
		addr := store.Addr{Seg: mi.Seg, Off: mi.Off}
		idx.sysIdtf[mi.Text] = addr
		idx.sysIdtfRev[addr] = mi.Text
	}
	return nil
}

// Close flushes the manifest and closes every open channel file.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.saveManifestLocked(); err != nil {
		return err
	}
	for _, ch := range idx.channels {
		if err := ch.close(); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) saveManifestLocked() error {
	m := &manifest{}
	for _, ch := range idx.channels {
		m.Channels = append(m.Channels, manifestChannel{ID: ch.id, Size: ch.size})
	}
	for link, e := range idx.byLink {
		m.Entries = append(m.Entries, entryToManifest(link, e))
	}
	for text, addr := range idx.sysIdtf {
		m.Identifiers = append(m.Identifiers, manifestIdentifier{Text: text, Seg: addr.Seg, Off: addr.Off})
	}
	return saveManifest(idx.cfg.RepoPath, m)
}

// selectChannel returns a channel with room for size more bytes, opening a
// new one if the last is full and the channel count budget allows it.
func (idx *Index) selectChannel(size int64) (*channel, error) {
	if len(idx.channels) > 0 {
		last := idx.channels[len(idx.channels)-1]
		if last.size+size <= int64(idx.cfg.MaxStringsChannelSize) {
			return last, nil
		}
	}
	if uint32(len(idx.channels)) >= idx.cfg.MaxStringsChannels && idx.cfg.MaxStringsChannels > 0 {
		// Channel budget exhausted: keep appending to the last channel
		// rather than rejecting writes outright.
		idx.log.Warn("fsindex: channel budget exhausted, overflowing last channel",
			"max_channels", idx.cfg.MaxStringsChannels)
		return idx.channels[len(idx.channels)-1], nil
	}
	ch, err := openChannel(idx.cfg.RepoPath, uint32(len(idx.channels)))
	if err != nil {
		return nil, err
	}
	idx.channels = append(idx.channels, ch)
	return ch, nil
}

// SetLinkContent replaces link's content: old term/exact-match entries
// are removed first, then the new content is
// appended to a channel and indexed. Callers (internal/memctx) are
// responsible for emitting the change_link_content event after this
// returns successfully.
func (idx *Index) SetLinkContent(link store.Addr, content []byte) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.byLink[link]; ok {
		idx.exact.remove(old.Content, link)
		if old.Searchable {
			for _, tok := range tokenize(string(old.Content), idx.cfg.TermSeparators) {
				idx.terms.remove([]byte(tok), link)
			}
		}
	}

	ch, err := idx.selectChannel(int64(len(content)))
	if err != nil {
		return err
	}
	offset, err := ch.append(content)
	if err != nil {
		return err
	}

	searchable := uint32(len(content)) <= idx.cfg.MaxSearchableStringSize
	e := &entry{Content: append([]byte(nil), content...), Channel: ch.id, Offset: offset, Length: int64(len(content)), Searchable: searchable}
	idx.byLink[link] = e
	idx.exact.insert(e.Content, link)
	if searchable {
		for _, tok := range tokenize(string(content), idx.cfg.TermSeparators) {
			idx.terms.insert([]byte(tok), link)
		}
	}
	return idx.saveManifestLocked()
}

// RemoveElement drops every index entry for an erased element: the
// exact-match and term trie entries plus the in-memory content record when
// it is a link with content, and any system identifier bound to it. The
// payload bytes already appended to a channel file stay where they are
// (channels are append-only); only the manifest stops referencing them.
// Removing an unindexed element is a no-op.
func (idx *Index) RemoveElement(link store.Addr) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, hadContent := idx.byLink[link]
	if hadContent {
		idx.exact.remove(e.Content, link)
		if e.Searchable {
			for _, tok := range tokenize(string(e.Content), idx.cfg.TermSeparators) {
				idx.terms.remove([]byte(tok), link)
			}
		}
		delete(idx.byLink, link)
	}

	text, hadIdtf := idx.sysIdtfRev[link]
	if hadIdtf {
		delete(idx.sysIdtf, text)
		delete(idx.sysIdtfRev, link)
	}

	if !hadContent && !hadIdtf {
		return nil
	}
	return idx.saveManifestLocked()
}

// GetLinkContent returns link's current content.
func (idx *Index) GetLinkContent(link store.Addr) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.byLink[link]
	if !ok {
		return nil, scerr.New(scerr.NotFound, "fsindex.GetLinkContent", nil)
	}
	return append([]byte(nil), e.Content...), nil
}

// FindLinksByExactContent returns every link whose current content equals
// content exactly.
func (idx *Index) FindLinksByExactContent(content []byte) []store.Addr {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.exact.get(content)
}

// FindLinksBySubstring tokenizes text the same way content is indexed and
// intersects the candidate id-lists for every token.
func (idx *Index) FindLinksBySubstring(text []byte) []store.Addr {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	toks := tokenize(string(text), idx.cfg.TermSeparators)
	if len(toks) == 0 {
		return nil
	}
	var result map[store.Addr]struct{}
	for i, tok := range toks {
		ids := idx.terms.get([]byte(tok))
		if i == 0 {
			result = make(map[store.Addr]struct{}, len(ids))
			for _, a := range ids {
				result[a] = struct{}{}
			}
			continue
		}
		present := make(map[store.Addr]struct{}, len(ids))
		for _, a := range ids {
			present[a] = struct{}{}
		}
		for a := range result {
			if _, ok := present[a]; !ok {
				delete(result, a)
			}
		}
	}
	out := make([]store.Addr, 0, len(result))
	for a := range result {
		out = append(out, a)
	}
	return out
}

// ResolveSystemIdentifier looks up the element bound to a keynode's system
// identifier.
func (idx *Index) ResolveSystemIdentifier(text string) (store.Addr, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	addr, ok := idx.sysIdtf[text]
	if !ok {
		return store.Empty, scerr.New(scerr.NotFound, "fsindex.ResolveSystemIdentifier", nil)
	}
	return addr, nil
}

// SetSystemIdentifier binds text to addr, overwriting any previous binding
// of that identifier.
func (idx *Index) SetSystemIdentifier(text string, addr store.Addr) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if old, ok := idx.sysIdtfRev[addr]; ok {
		delete(idx.sysIdtf, old)
	}
	idx.sysIdtf[text] = addr
	idx.sysIdtfRev[addr] = text
	return idx.saveManifestLocked()
}

// CheckWritable probes that the active content channel still accepts
// writes, for use as a readiness check. It opens a channel first if none
// has been allocated yet.
func (idx *Index) CheckWritable() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ch, err := idx.selectChannel(1)
	if err != nil {
		return err
	}
	return ch.probeWritable()
}

// ResolveSystemIdentifierFuzzy ranks every known system identifier against
// text by Jaro-Winkler similarity.
func (idx *Index) ResolveSystemIdentifierFuzzy(text string, limit int) []FuzzyMatch {
	idx.mu.RLock()
	candidates := make([]string, 0, len(idx.sysIdtf))
	for k := range idx.sysIdtf {
		candidates = append(candidates, k)
	}
	idx.mu.RUnlock()
	return rankByJaroWinkler(text, candidates, limit)
}
