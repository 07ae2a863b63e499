// Package fsindex implements the file-backed string-content index: an
// exact-match trie and a term trie over link content, channel-sharded
// payload storage, and system-identifier resolution for the keynode
// bootstrap.
package fsindex

// Config carries the content-index configuration options.
type Config struct {
	RepoPath                string `yaml:"repo_path"`
	Clear                   bool   `yaml:"clear"`
	MaxStringsChannels      uint32 `yaml:"max_strings_channels"`
	MaxStringsChannelSize   uint32 `yaml:"max_strings_channel_size"`
	MaxSearchableStringSize uint32 `yaml:"max_searchable_string_size"`
	TermSeparators          string `yaml:"term_separators"`
}

// defaultTermSeparators mirrors sc_dictionary's DEFAULT_TERM_SEPARATORS:
// whitespace and common punctuation.
const defaultTermSeparators = " \t\n\r.,;:!?()[]{}\"'"

// DefaultConfig returns the documented defaults for every option the
// caller does not set explicitly.
func DefaultConfig(repoPath string) Config {
	return Config{
		RepoPath:                repoPath,
		MaxStringsChannels:      256,
		MaxStringsChannelSize:   4 << 20, // 4 MiB
		MaxSearchableStringSize: 1 << 16, // 64 KiB
		TermSeparators:          defaultTermSeparators,
	}
}
