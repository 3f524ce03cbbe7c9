package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ProofDir represents one stored proof (e.g. proofs/report.pdf/).
// Contains: proof.ots, info, digest, verify, history/
type ProofDir struct {
	fs.Inode
	view *view
	name string
}

var _ = (fs.NodeLookuper)((*ProofDir)(nil))
var _ = (fs.NodeReaddirer)((*ProofDir)(nil))
var _ = (fs.NodeGetattrer)((*ProofDir)(nil))

var proofFiles = []string{"proof.ots", "info", "digest", "verify"}

func (d *ProofDir) path(child string) string {
	p := "proofs/" + d.name
	if child != "" {
		p += "/" + child
	}
	return p
}

func (d *ProofDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno(d.path(""))
	return fs.OK
}

func (d *ProofDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(proofFiles)+1)
	for _, name := range proofFiles {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFREG, Ino: stableIno(d.path(name))})
	}
	entries = append(entries, fuse.DirEntry{Name: "history", Mode: syscall.S_IFDIR, Ino: stableIno(d.path("history"))})
	return fs.NewListDirStream(entries), fs.OK
}

func (d *ProofDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	f := &GeneratedFile{path: d.path(name)}
	switch name {
	case "proof.ots":
		f.render = func(context.Context) ([]byte, error) { return d.view.proofFile(d.name) }
	case "info":
		f.render = func(context.Context) ([]byte, error) { return d.view.info(d.name) }
	case "digest":
		f.render = func(context.Context) ([]byte, error) { return d.view.digest(d.name) }
	case "verify":
		f.render = func(ctx context.Context) ([]byte, error) { return d.view.verifyReport(ctx, d.name) }
		f.dynamic = true
	case "history":
		h := &HistoryDir{view: d.view, name: d.name}
		return d.NewInode(ctx, h, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: stableIno(d.path(name))}), fs.OK
	default:
		return nil, syscall.ENOENT
	}
	return d.NewInode(ctx, f, fs.StableAttr{Mode: syscall.S_IFREG, Ino: stableIno(f.path)}), fs.OK
}
