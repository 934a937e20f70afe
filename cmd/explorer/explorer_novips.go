//go:build !vips

package main

import (
	"errors"

	imagecompressor "github.com/Skryldev/image-compressor"
	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
)

var errNoVips = errors.New(`backend "vips" is not compiled in; rebuild with -tags vips`)

func enableVips(*imagecompressor.Compressor, config.Config, core.Logger) (func(), error) {
	return nil, errNoVips
}
