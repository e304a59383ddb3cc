// Package mediatypes provides the media kinds, input allow-lists and MIME
// types shared by the converter, the transcription service and the HTTP
// handlers.
//
// It has no dependencies beyond the standard library so every other package
// can import it without cycles.
//
//	if !mediatypes.IsAllowed(mediatypes.KindAudio, "song.MP3") {
//	    // reject
//	}
//	mime := mediatypes.GetMimeType("wav") // "audio/wav"
package mediatypes
