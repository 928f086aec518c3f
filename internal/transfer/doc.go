// Package transfer moves large audio files in fixed-size chunks.
//
// The Uploader splits a file and sends chunks strictly in index order
// through a ChunkSender, stopping at the first failure. The Receiver stages
// chunks on disk per session and assembles the file once the chunk with the
// final index arrives and every earlier index is present. Any inconsistency
// aborts the session; a partial file is never exposed.
package transfer
