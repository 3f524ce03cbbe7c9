package fuse

import (
	"context"
	"strconv"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const maxHistoryEntries = 64

// HistoryDir exposes the revisions of one proof, newest first.
// Layout: history/0 (current revision JSON), history/1, ...
type HistoryDir struct {
	fs.Inode
	view *view
	name string
}

var _ = (fs.NodeLookuper)((*HistoryDir)(nil))
var _ = (fs.NodeReaddirer)((*HistoryDir)(nil))
var _ = (fs.NodeGetattrer)((*HistoryDir)(nil))

func (d *HistoryDir) path() string {
	return "proofs/" + d.name + "/history"
}

func (d *HistoryDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno(d.path())
	return fs.OK
}

func (d *HistoryDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	revs, err := d.view.repo.History(d.name, maxHistoryEntries)
	if err != nil {
		return nil, errno(err)
	}
	entries := make([]fuse.DirEntry, len(revs))
	for i := range revs {
		name := strconv.Itoa(i)
		entries[i] = fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFREG,
			Ino:  stableIno(d.path() + "/" + name),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *HistoryDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= maxHistoryEntries || strconv.Itoa(idx) != name {
		return nil, syscall.ENOENT
	}
	if _, err := d.view.revision(d.name, idx); err != nil {
		return nil, errno(err)
	}

	f := &GeneratedFile{
		path:   d.path() + "/" + name,
		render: func(context.Context) ([]byte, error) { return d.view.revision(d.name, idx) },
	}
	return d.NewInode(ctx, f, fs.StableAttr{Mode: syscall.S_IFREG, Ino: stableIno(f.path)}), fs.OK
}
