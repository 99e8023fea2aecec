// Package relocate moves newly arrived files out of the watched directories
// and into the private holding directory.
//
// The move is the ownership transfer point: once Relocate returns, the
// holding copy belongs to the caller and the watched directory no longer
// contains the file. When two directories are watched, the secondary
// directory is consulted first for a name present in both.
package relocate
