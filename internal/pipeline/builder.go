package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"media-converter/internal/mediatypes"
	"media-converter/internal/params"
)

// rotationFilters maps the accepted rotation angles to filter-graph tokens.
var rotationFilters = map[int]string{
	90:  "transpose=1",
	180: "transpose=1,transpose=1",
	270: "transpose=2",
}

var flipFilters = map[params.Flip]string{
	params.FlipHorizontal: "hflip",
	params.FlipVertical:   "vflip",
	params.FlipBoth:       "hflip,vflip",
}

// Paths are the artifact locations a pipeline is built around.
// Intermediate is only read when the request needs two stages.
type Paths struct {
	Input        string
	Intermediate string
	Output       string
}

// Builder turns validated requests into tool argument lists.
type Builder struct {
	// Threads is passed to every invocation as the worker-count bound.
	Threads int
}

// NewBuilder returns a Builder passing threads to every stage.
func NewBuilder(threads int) Builder {
	if threads < 1 {
		threads = 1
	}
	return Builder{Threads: threads}
}

// Build dispatches on the request kind.
func (b Builder) Build(req params.Request, paths Paths) (Pipeline, error) {
	switch req.Kind {
	case mediatypes.KindAudio:
		return b.Audio(req.Audio, paths.Input, paths.Output), nil
	case mediatypes.KindImage:
		return b.Image(req.Image, paths)
	default:
		return Pipeline{}, fmt.Errorf("no command builder for media kind %q", req.Kind)
	}
}

func (b Builder) base(input string) []string {
	return []string{"-i", input, "-threads", strconv.Itoa(b.Threads)}
}

// Audio builds the single stage for an audio conversion. Options that were
// not requested are left out entirely.
func (b Builder) Audio(opts params.Audio, input, output string) Pipeline {
	args := b.base(input)

	if opts.Codec != "" {
		args = append(args, "-c:a", opts.Codec)
	}
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	if opts.HasVolume {
		args = append(args, "-filter:a", "volume="+strconv.FormatFloat(opts.Volume, 'f', -1, 64))
	}
	args = append(args, output)

	return Pipeline{Stages: []Stage{{
		Name:   StageConvert,
		Args:   args,
		Input:  input,
		Output: output,
	}}}
}

// Image builds one stage, or two when a flip is combined with geometry,
// quality or rotation. In the two-stage form the first stage writes
// paths.Intermediate and the second reads it.
func (b Builder) Image(opts params.Image, paths Paths) (Pipeline, error) {
	if !opts.NeedsStaging() {
		filters := transformFilters(opts)
		if f, ok := flipFilters[opts.Flip]; ok {
			filters = append(filters, f)
		}
		args := b.imageArgs(paths.Input, filters, opts.Quality, paths.Output)
		return Pipeline{Stages: []Stage{{
			Name:   StageConvert,
			Args:   args,
			Input:  paths.Input,
			Output: paths.Output,
		}}}, nil
	}

	if paths.Intermediate == "" {
		return Pipeline{}, fmt.Errorf("flip combined with other transforms needs an intermediate path")
	}

	first := Stage{
		Name:   StageTransform,
		Args:   b.imageArgs(paths.Input, transformFilters(opts), opts.Quality, paths.Intermediate),
		Input:  paths.Input,
		Output: paths.Intermediate,
	}
	second := Stage{
		Name:   StageFlip,
		Args:   b.imageArgs(paths.Intermediate, []string{flipFilters[opts.Flip]}, opts.Quality, paths.Output),
		Input:  paths.Intermediate,
		Output: paths.Output,
	}
	return Pipeline{Stages: []Stage{first, second}}, nil
}

func (b Builder) imageArgs(input string, filters []string, quality int, output string) []string {
	args := b.base(input)
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if quality > 0 {
		args = append(args, "-q:v", strconv.Itoa(quality))
	}
	return append(args, output)
}

// transformFilters returns geometry then rotation tokens.
func transformFilters(opts params.Image) []string {
	var filters []string
	if opts.HasGeometry() {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height))
	}
	if f, ok := rotationFilters[opts.Rotation]; ok {
		filters = append(filters, f)
	}
	return filters
}

// ExtractAudio builds the single stage that normalises any audio or video
// input to 16 kHz mono PCM WAV for speech recognition.
func (b Builder) ExtractAudio(input, output string) Pipeline {
	args := b.base(input)
	args = append(args,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		output,
	)
	return Pipeline{Stages: []Stage{{
		Name:   StageExtract,
		Args:   args,
		Input:  input,
		Output: output,
	}}}
}
