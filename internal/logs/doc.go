// Package logs reads daemon and project log files for the CLI.
//
// Last returns the trailing lines of a file with bounded memory. Follow polls
// for appended lines, tolerating rotation and files that do not exist yet, and
// stops when its context ends.
package logs
