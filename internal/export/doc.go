// Package export renders transcripts as downloadable documents: plain
// text, JSON, Word (docx) and PDF.
package export
