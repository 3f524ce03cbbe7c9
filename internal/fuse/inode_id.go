package fuse

import "hash/fnv"

// stableIno returns a stable inode number for a path inside the mount.
func stableIno(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}
