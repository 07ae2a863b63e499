package fsindex

import (
	"os"
	"path/filepath"

	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"gopkg.in/yaml.v3"
)

// manifestFileName is the manifest file listing channels and their sizes.
const manifestFileName = "manifest.yaml"

type manifestChannel struct {
	ID   uint32 `yaml:"id"`
	Size int64  `yaml:"size"`
}

type manifestEntry struct {
	LinkSeg    uint16 `yaml:"link_seg"`
	LinkOff    uint16 `yaml:"link_off"`
	Channel    uint32 `yaml:"channel"`
	Offset     int64  `yaml:"offset"`
	Length     int64  `yaml:"length"`
	Searchable bool   `yaml:"searchable"`
}

type manifestIdentifier struct {
	Text string `yaml:"text"`
	Seg  uint16 `yaml:"seg"`
	Off  uint16 `yaml:"off"`
}

// manifest is the on-disk image persisted alongside the channel files. It
// is the source of truth used to rebuild the in-memory tries on startup
//; the exact-match and terms tries themselves are not
// separately serialised — they are cheap to reconstruct by replaying each
// entry's content back through the same insert path used at write time.
type manifest struct {
	Channels    []manifestChannel    `yaml:"channels"`
	Entries     []manifestEntry      `yaml:"entries"`
	Identifiers []manifestIdentifier `yaml:"identifiers"`
}

func manifestPath(repoPath string) string {
	return filepath.Join(repoPath, manifestFileName)
}

func loadManifest(repoPath string) (*manifest, error) {
	data, err := os.ReadFile(manifestPath(repoPath))
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, scerr.New(scerr.IO, "fsindex.loadManifest", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, scerr.New(scerr.IO, "fsindex.loadManifest", err)
	}
	return &m, nil
}

func saveManifest(repoPath string, m *manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return scerr.New(scerr.IO, "fsindex.saveManifest", err)
	}
	if err := os.WriteFile(manifestPath(repoPath), data, 0o644); err != nil {
		return scerr.New(scerr.IO, "fsindex.saveManifest", err)
	}
	return nil
}

func entryToManifest(link store.Addr, e *entry) manifestEntry {
	return manifestEntry{
		LinkSeg:    link.Seg,
		LinkOff:    link.Off,
		Channel:    e.Channel,
		Offset:     e.Offset,
		Length:     e.Length,
		Searchable: e.Searchable,
	}
}
