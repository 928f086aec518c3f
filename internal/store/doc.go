// Package store persists projects and their segments in SQLite.
//
// A project row tracks where the source audio lives and where the project
// sits in the detection and transcription lifecycle; segment rows carry the
// interval and the latest transcription outcome. Audio slices are never
// stored: they are cut from the source file on demand.
//
// The schema is versioned. Opening a database created with a different
// version fails with ErrSchemaMismatch instead of migrating in place.
package store
