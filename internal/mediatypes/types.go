package mediatypes

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the media family a request operates on.
type Kind string

const (
	// KindAudio covers audio conversion and audio transcription inputs.
	KindAudio Kind = "audio"
	// KindImage covers image conversion inputs.
	KindImage Kind = "image"
	// KindVideo covers video transcription inputs.
	KindVideo Kind = "video"
)

// AudioExtensions lists accepted audio input extensions (without dot).
var AudioExtensions = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"flac": true,
	"aac":  true,
	"ogg":  true,
	"m4a":  true,
	"wma":  true,
	"webm": true,
	"opus": true,
	"aiff": true,
}

// ImageExtensions lists accepted image input extensions (without dot).
var ImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"bmp":  true,
	"gif":  true,
	"tiff": true,
	"webp": true,
}

// VideoExtensions lists accepted video input extensions for transcription.
var VideoExtensions = map[string]bool{
	"mp4":  true,
	"mkv":  true,
	"avi":  true,
	"mov":  true,
	"webm": true,
	"flv":  true,
	"wmv":  true,
	"m4v":  true,
}

// MimeTypes maps lowercase extensions (without dot) to MIME types.
var MimeTypes = map[string]string{
	// Audio
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"wma":  "audio/x-ms-wma",
	"opus": "audio/opus",
	"aiff": "audio/aiff",

	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"tiff": "image/tiff",
	"webp": "image/webp",

	// Video
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"flv":  "video/x-flv",
	"wmv":  "video/x-ms-wmv",
	"m4v":  "video/x-m4v",

	// Transcript exports
	"txt":  "text/plain; charset=utf-8",
	"json": "application/json",
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Extensions returns the allow-list for kind, or nil for an unknown kind.
func Extensions(kind Kind) map[string]bool {
	switch kind {
	case KindAudio:
		return AudioExtensions
	case KindImage:
		return ImageExtensions
	case KindVideo:
		return VideoExtensions
	default:
		return nil
	}
}

// Ext returns the lowercase extension of name without the leading dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// bareExt is the shape of every extension the service writes to disk.
var bareExt = regexp.MustCompile(`^[a-z0-9_-]+$`)

// IsBareExt reports whether ext is a non-empty extension made of lowercase
// letters, digits, underscores and hyphens.
func IsBareExt(ext string) bool {
	return bareExt.MatchString(ext)
}

// IsAllowed reports whether name's extension is in the allow-list for kind.
func IsAllowed(kind Kind, name string) bool {
	ext := Ext(name)
	return ext != "" && Extensions(kind)[ext]
}

// GetMimeType returns the MIME type for an extension given with or without
// its leading dot. Unknown extensions map to application/octet-stream.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return mime
	}
	return "application/octet-stream"
}
