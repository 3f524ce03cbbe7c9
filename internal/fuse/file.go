package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// GeneratedFile is a read-only file whose content is rendered from the
// repository. Dynamic files are only rendered on open and report size 0.
type GeneratedFile struct {
	fs.Inode
	path    string
	render  func(ctx context.Context) ([]byte, error)
	dynamic bool
}

var _ = (fs.NodeGetattrer)((*GeneratedFile)(nil))
var _ = (fs.NodeOpener)((*GeneratedFile)(nil))

func (f *GeneratedFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0444
	out.Ino = stableIno(f.path)
	if f.dynamic {
		return fs.OK
	}
	data, err := f.render(ctx)
	if err != nil {
		return errno(err)
	}
	out.Size = uint64(len(data))
	return fs.OK
}

func (f *GeneratedFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	data, err := f.render(ctx)
	if err != nil {
		return nil, 0, errno(err)
	}
	return &snapshotHandle{data: data}, fuse.FOPEN_DIRECT_IO, fs.OK
}

// snapshotHandle serves reads from the bytes rendered at open time.
type snapshotHandle struct {
	data []byte
}

var _ = (fs.FileReader)((*snapshotHandle)(nil))

func (h *snapshotHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(window(h.data, dest, off)), fs.OK
}

func window(data, dest []byte, off int64) []byte {
	if off >= int64(len(data)) {
		return nil
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[off:end]
}
