// Package staleness implements the incremental-build decision: whether a
// task's commands may be skipped because its generated files are newer than
// all of its source files. The check is deliberately coarse — whole-task,
// modification-time based, no content hashing — so a touched-but-unchanged
// source still triggers a rebuild. Whenever the signal is unreliable (no
// patterns, failed expansion, missing outputs) the answer is "run".
package staleness
