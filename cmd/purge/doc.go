// Command purge is a maintenance utility for the media converter storage
// area.
//
// Usage:
//
//	purge <command> [-yes]
//
// Commands:
//
//	purge   Delete every upload, intermediate and output file and clear
//	        all output mappings, invalidating existing download links.
//	        Asks for confirmation on a terminal unless -yes is given.
//
//	status  Print per-directory storage usage, the number of stored
//	        mappings and when the storage area was last purged.
//
// Environment:
//
// The tool reads the same variables (and .env file) as the server, so
// DATA_DIR, UPLOAD_DIR, WORK_DIR, OUTPUT_DIR and DATABASE_DIR point it at
// the same storage area.
package main
