package fsindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scmem/scmem/pkg/scerr"
)

// channel is one append-only content file, one shard of the content store.
type channel struct {
	id   uint32
	f    *os.File
	size int64
}

func channelFileName(repoPath string, id uint32) string {
	return filepath.Join(repoPath, fmt.Sprintf("channel_%04d.dat", id))
}

func openChannel(repoPath string, id uint32) (*channel, error) {
	f, err := os.OpenFile(channelFileName(repoPath, id), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, scerr.New(scerr.IO, "fsindex.openChannel", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, scerr.New(scerr.IO, "fsindex.openChannel", err)
	}
	return &channel{id: id, f: f, size: info.Size()}, nil
}

// append writes content at the channel's current end-of-file and returns
// the offset it was written at.
func (c *channel) append(content []byte) (offset int64, err error) {
	offset = c.size
	n, err := c.f.WriteAt(content, offset)
	if err != nil {
		return 0, scerr.New(scerr.IO, "fsindex.channel.append", err)
	}
	c.size += int64(n)
	return offset, nil
}

func (c *channel) readAt(offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := c.f.ReadAt(buf, offset); err != nil {
		return nil, scerr.New(scerr.IO, "fsindex.channel.readAt", err)
	}
	return buf, nil
}

func (c *channel) close() error {
	if err := c.f.Close(); err != nil {
		return scerr.New(scerr.IO, "fsindex.channel.close", err)
	}
	return nil
}

// probeWritable writes one byte past the channel's recorded end-of-file and
// truncates it back off, exercising the underlying file's writability
// without disturbing any indexed offset.
func (c *channel) probeWritable() error {
	if _, err := c.f.WriteAt([]byte{0}, c.size); err != nil {
		return scerr.New(scerr.IO, "fsindex.channel.probeWritable", err)
	}
	if err := c.f.Truncate(c.size); err != nil {
		return scerr.New(scerr.IO, "fsindex.channel.probeWritable", err)
	}
	return nil
}
