// Package workflow advances stored projects through detection and
// transcription.
//
// The Manager polls the store for the oldest project waiting on a stage,
// moves it into that stage's processing status, runs the stage handler and
// records the outcome as an explicit status transition. One project runs at
// a time. Segment results are persisted as they arrive so a restart resumes
// where the previous run stopped.
//
// Each project gets its own log file under the log directory; the daemon log
// receives the same records. A cancel request stops the running project
// between segments and moves it to canceled.
package workflow
