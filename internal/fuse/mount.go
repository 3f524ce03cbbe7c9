package fuse

import (
	"github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"

	"github.com/systemshift/stampdag/internal/proof"
	"github.com/systemshift/stampdag/internal/store"
)

// Options configures the mounted view.
type Options struct {
	// Oracles answer lookups when a verify file is read.
	Oracles proof.Oracles
	Verify  []proof.VerifyOption
	Logger  zerolog.Logger
	Debug   bool
}

// MountFS mounts a read-only view of repo at mountpoint.
// Returns the server (call server.Wait() to block, server.Unmount() to stop).
func MountFS(mountpoint string, repo *store.Repository, opts Options) (*gofuse.Server, error) {
	log := opts.Logger.With().Str("component", "fuse").Logger()
	root := &RootNode{view: &view{
		repo:    repo,
		oracles: opts.Oracles,
		verify:  opts.Verify,
		log:     log,
	}}

	fsOpts := &fs.Options{
		MountOptions: gofuse.MountOptions{
			FsName:        "stampdag",
			Name:          "stampdag",
			DisableXAttrs: true,
			Debug:         opts.Debug,
			Options:       []string{"ro"},
		},
	}

	server, err := fs.Mount(mountpoint, root, fsOpts)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mountpoint", mountpoint).Msg("mounted")
	return server, nil
}
