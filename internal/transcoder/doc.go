// Package transcoder runs conversion pipelines through FFmpeg.
//
// A [Transcoder] executes the stages of a pipeline.Pipeline strictly in
// order. Each stage is an isolated child process started by a [Runner]:
//   - a non-zero exit fails the pipeline with ToolExecutionFailure and the
//     tool's stderr as the detail
//   - a stage exceeding the configured timeout fails with ToolTimeout
//   - a stage that exits cleanly but leaves an empty or missing output is
//     treated as a tool failure
//
// [ExecRunner] is the production Runner. It tracks live processes so the
// server can kill them during shutdown.
package transcoder
