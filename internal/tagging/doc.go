// Package tagging rewrites the embedded metadata of saved audio files.
//
// An Applier picks a Writer by file extension. The FLAC writer rebuilds the
// Vorbis comment block and embeds cover art saved beside the track; the m4a
// writer sets the equivalent iTunes atoms. Writers never modify the original
// file until the rewritten version is complete.
package tagging
