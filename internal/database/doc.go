// Package database provides SQLite persistence for the media converter.
//
// It stores:
//   - output mappings (generated output identifier to download filename),
//     keyed by scope so identifiers from one scope never resolve in another
//   - the conversion history used by /api/stats and the metrics collector
//   - small metadata values such as the last storage purge time
//
// The database uses WAL mode with a busy timeout so that several server
// processes sharing one data directory can record and resolve mappings
// concurrently.
package database
