//go:build vips

package main

import (
	imagecompressor "github.com/Skryldev/image-compressor"
	"github.com/Skryldev/image-compressor/adapters/vips"
	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
)

// enableVips swaps the stdlib codecs for libvips and returns its shutdown.
func enableVips(comp *imagecompressor.Compressor, cfg config.Config, logger core.Logger) (func(), error) {
	backend := vips.NewBackend(vips.BackendConfig{MaxWorkers: cfg.WorkerCount})
	vips.RegisterVipsBackend(comp.Registry(), backend)
	logger.Info("backend.vips.enabled")
	return backend.Shutdown, nil
}
