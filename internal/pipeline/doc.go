// Package pipeline builds the ordered FFmpeg invocations for a validated
// conversion request.
//
// Every invocation has the shape
//
//	-i <input> -threads <n> [options...] <output>
//
// Audio requests always produce one stage. Image requests produce one stage
// unless a flip is combined with scaling, quality or rotation, in which case
// the first stage applies the transform into an intermediate file and the
// second stage applies the flip. Building is pure: identical requests and
// paths always yield identical argument lists.
package pipeline
