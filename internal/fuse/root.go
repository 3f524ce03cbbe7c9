package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// RootNode is the mountpoint directory. It contains "proofs/".
type RootNode struct {
	fs.Inode
	view *view
}

var _ = (fs.NodeOnAdder)((*RootNode)(nil))
var _ = (fs.NodeGetattrer)((*RootNode)(nil))

func (r *RootNode) OnAdd(ctx context.Context) {
	proofsDir := &ProofsDir{view: r.view}
	proofsInode := r.NewPersistentInode(ctx, proofsDir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("proofs"),
	})
	r.AddChild("proofs", proofsInode, true)
}

func (r *RootNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("/")
	return fs.OK
}

// ProofsDir lists every proof in the store that is not deleted.
type ProofsDir struct {
	fs.Inode
	view *view
}

var _ = (fs.NodeLookuper)((*ProofsDir)(nil))
var _ = (fs.NodeReaddirer)((*ProofsDir)(nil))
var _ = (fs.NodeGetattrer)((*ProofsDir)(nil))

func (d *ProofsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("proofs")
	return fs.OK
}

func (d *ProofsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := d.view.repo.List()
	if err != nil {
		d.view.log.Error().Err(err).Msg("list proofs")
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, len(names))
	for i, name := range names {
		entries[i] = fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFDIR,
			Ino:  stableIno("proofs/" + name),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *ProofsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if !d.view.exists(name) {
		return nil, syscall.ENOENT
	}
	child := d.NewInode(ctx, &ProofDir{view: d.view, name: name}, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("proofs/" + name),
	})
	return child, fs.OK
}
