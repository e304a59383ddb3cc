// Package mapping is the output mapping registry: it associates generated
// output identifiers with the filename a client sees on download.
//
// The registry is insert-only. Every lookup is made in an explicit [Scope];
// an identifier recorded in one scope resolves to NotFound in every other.
// [ProcessScope] is visible to every worker and process sharing the data
// directory when backed by [SQLStore]. [SessionScope] confines mappings to
// one client session. Entries are only removed by [Registry.Teardown].
package mapping
