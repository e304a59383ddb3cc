package pipeline

import (
	"fmt"
	"strings"
)

// Stage names used in logs and metrics.
const (
	StageConvert   = "convert"
	StageTransform = "transform"
	StageFlip      = "flip"
	StageExtract   = "extract"
)

// Stage is one invocation of the transcoding tool.
type Stage struct {
	Name string
	// Args excludes the tool binary itself.
	Args   []string
	Input  string
	Output string
}

// String renders the argument list for debug logs.
func (s Stage) String() string {
	return fmt.Sprintf("%s: %s", s.Name, strings.Join(s.Args, " "))
}

// Pipeline is the ordered list of stages for one request.
type Pipeline struct {
	Stages []Stage
}

// Len returns the number of stages.
func (p Pipeline) Len() int {
	return len(p.Stages)
}

// Input returns the path read by the first stage.
func (p Pipeline) Input() string {
	if len(p.Stages) == 0 {
		return ""
	}
	return p.Stages[0].Input
}

// Output returns the path written by the final stage.
func (p Pipeline) Output() string {
	if len(p.Stages) == 0 {
		return ""
	}
	return p.Stages[len(p.Stages)-1].Output
}

// Intermediates returns the outputs of every non-final stage.
func (p Pipeline) Intermediates() []string {
	if len(p.Stages) < 2 {
		return nil
	}
	paths := make([]string, 0, len(p.Stages)-1)
	for _, s := range p.Stages[:len(p.Stages)-1] {
		paths = append(paths, s.Output)
	}
	return paths
}

// Validate checks that the pipeline is non-empty and that every stage
// reads exactly what the previous stage wrote.
func (p Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline has no stages")
	}
	for i, s := range p.Stages {
		if s.Input == "" || s.Output == "" {
			return fmt.Errorf("stage %d (%s) is missing its input or output path", i, s.Name)
		}
		if s.Input == s.Output {
			return fmt.Errorf("stage %d (%s) reads and writes %s", i, s.Name, s.Input)
		}
		if i > 0 && p.Stages[i-1].Output != s.Input {
			return fmt.Errorf("stage %d (%s) reads %s but stage %d wrote %s",
				i, s.Name, s.Input, i-1, p.Stages[i-1].Output)
		}
	}
	return nil
}
