// Package workspace prepares the project working directories for a build and
// guards them with an advisory lock so two builds never interleave writes to
// build/.
//
// The lock is a file created with O_EXCL holding the owner's pid. A lock whose
// owner is no longer running is treated as stale and taken over.
package workspace
