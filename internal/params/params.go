package params

import (
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"

	"media-converter/internal/apperror"
	"media-converter/internal/mediatypes"
)

// Form field names.
const (
	FieldOutputFormat = "output_format"
	FieldCodec        = "codec"
	FieldBitrate      = "bitrate"
	FieldSampleRate   = "sample_rate"
	FieldChannels     = "channels"
	FieldVolume       = "volume"
	FieldWidth        = "width"
	FieldHeight       = "height"
	FieldQuality      = "quality"
	FieldRotation     = "rotation"
	FieldFlip         = "flip"
)

// Limits applied to numeric fields.
const (
	MinQuality    = 1
	MaxQuality    = 31
	MaxDimension  = 16384
	MaxChannels   = 8
	MaxSampleRate = 384000
)

var (
	codecPattern   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	bitratePattern = regexp.MustCompile(`^[0-9]+[kKmM]?$`)
)

// Flip is the requested mirror axis of an image.
type Flip string

const (
	FlipNone       Flip = ""
	FlipHorizontal Flip = "h"
	FlipVertical   Flip = "v"
	FlipBoth       Flip = "hv"
)

// Input is the untyped request as it arrives from the transport.
type Input struct {
	// HasFile is false when the request carried no file part at all.
	HasFile  bool
	Filename string
	Values   map[string][]string
}

// Get returns the first trimmed value for key, or "" when absent.
func (in Input) Get(key string) string {
	if vs := in.Values[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// Audio holds the validated audio options. Zero values mean "not requested".
type Audio struct {
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
	Volume     float64
	HasVolume  bool
}

// Image holds the validated image options. Zero values mean "not requested".
type Image struct {
	Width    int
	Height   int
	Quality  int
	Rotation int
	Flip     Flip
}

// HasGeometry reports whether a resize was requested.
func (i Image) HasGeometry() bool {
	return i.Width > 0 && i.Height > 0
}

// HasTransform reports whether any non-flip transform was requested.
func (i Image) HasTransform() bool {
	return i.HasGeometry() || i.Quality > 0 || i.Rotation != 0
}

// NeedsStaging reports whether the conversion has to run as two tool
// invocations: flip cannot be composed with the other transforms.
func (i Image) NeedsStaging() bool {
	return i.Flip != FlipNone && i.HasTransform()
}

// Request is a validated, strongly typed conversion request.
type Request struct {
	Kind         mediatypes.Kind
	Filename     string
	InputExt     string
	OutputFormat string
	Audio        Audio
	Image        Image
}

// OutputName is the human-facing filename of the converted artifact.
func (r Request) OutputName() string {
	return ReplaceExt(r.Filename, r.OutputFormat)
}

// ReplaceExt swaps the last extension of name for ext.
func ReplaceExt(name, ext string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		stem = "output"
	}
	return stem + "." + ext
}

// Validate checks in against the rules for kind, short-circuiting at the
// first failure. It never touches the filesystem.
func Validate(kind mediatypes.Kind, in Input) (Request, error) {
	req := Request{Kind: kind}

	filename := SanitizeFilename(in.Filename)
	if !in.HasFile || filename == "" {
		return req, apperror.New(apperror.MissingFile, "No file selected for upload")
	}
	req.Filename = filename

	format, err := OutputFormat(in.Get(FieldOutputFormat))
	if err != nil {
		return req, err
	}
	req.OutputFormat = format

	if !mediatypes.IsAllowed(kind, filename) {
		return req, apperror.New(apperror.UnsupportedInputFormat, "Unsupported input file format")
	}
	req.InputExt = mediatypes.Ext(filename)

	switch kind {
	case mediatypes.KindAudio:
		req.Audio, err = validateAudio(in)
	case mediatypes.KindImage:
		req.Image, err = validateImage(in)
	}
	if err != nil {
		return req, err
	}
	return req, nil
}

// OutputFormat normalises a requested output format, which must be a bare
// extension as accepted by mediatypes.IsBareExt.
func OutputFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	if !mediatypes.IsBareExt(format) {
		return "", apperror.New(apperror.InvalidOutputFormat,
			`Invalid or missing output format. Please specify a valid format like "mp3", "png", etc.`)
	}
	return format, nil
}

func validateAudio(in Input) (Audio, error) {
	var a Audio

	if raw := in.Get(FieldVolume); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return a, apperror.Field(FieldVolume, "Invalid volume value. Please provide a non-negative number.")
		}
		a.Volume, a.HasVolume = v, true
	}

	var err error
	if a.SampleRate, err = positiveInt(in, FieldSampleRate, MaxSampleRate); err != nil {
		return a, err
	}
	if a.Channels, err = positiveInt(in, FieldChannels, MaxChannels); err != nil {
		return a, err
	}

	if raw := in.Get(FieldBitrate); raw != "" {
		if !bitratePattern.MatchString(raw) {
			return a, apperror.Field(FieldBitrate, "Invalid bitrate %q. Use a value like 128k.", raw)
		}
		a.Bitrate = raw
	}

	if raw := in.Get(FieldCodec); raw != "" {
		if !codecPattern.MatchString(raw) {
			return a, apperror.Field(FieldCodec, "Invalid codec %q.", raw)
		}
		a.Codec = raw
	}

	return a, nil
}

func validateImage(in Input) (Image, error) {
	var img Image

	var err error
	if img.Width, err = positiveInt(in, FieldWidth, MaxDimension); err != nil {
		return img, err
	}
	if img.Height, err = positiveInt(in, FieldHeight, MaxDimension); err != nil {
		return img, err
	}
	if (img.Width == 0) != (img.Height == 0) {
		missing := FieldHeight
		if img.Width == 0 {
			missing = FieldWidth
		}
		return img, apperror.Field(missing, "Width and height must be provided together.")
	}

	if raw := in.Get(FieldQuality); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < MinQuality || q > MaxQuality {
			return img, apperror.Field(FieldQuality, "Quality must be an integer between %d and %d.", MinQuality, MaxQuality)
		}
		img.Quality = q
	}

	if raw := in.Get(FieldRotation); raw != "" {
		r, err := strconv.Atoi(raw)
		if err != nil || (r != 90 && r != 180 && r != 270) {
			return img, apperror.Field(FieldRotation, "Rotation must be one of 90, 180 or 270.")
		}
		img.Rotation = r
	}

	if raw := in.Get(FieldFlip); raw != "" {
		switch strings.ToLower(raw) {
		case "h":
			img.Flip = FlipHorizontal
		case "v":
			img.Flip = FlipVertical
		case "hv", "vh":
			img.Flip = FlipBoth
		default:
			return img, apperror.New(apperror.InvalidFlipDirection, "Flip must be one of h, v or hv.")
		}
	}

	return img, nil
}

// positiveInt parses an optional integer field in [1, limit]; absent is 0.
func positiveInt(in Input, field string, limit int) (int, error) {
	raw := in.Get(field)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > limit {
		return 0, apperror.Field(field, "Invalid %s value. It must be an integer between 1 and %d.", field, limit)
	}
	return n, nil
}

// SanitizeFilename reduces a client-supplied filename to a safe base name
// made of ASCII letters, digits, '.', '-' and '_'.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.TrimLeft(b.String(), "._")
}
