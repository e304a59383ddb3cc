// Package media inspects converted images.
//
// JPEG, PNG, GIF, BMP, TIFF and WebP outputs are read with the standard
// image decoders plus golang.org/x/image so the conversion response can
// report the produced width and height.
package media
