// Package drain measures how long a directory takes to be emptied by a
// pulling transport (move, rsync, s/ftp get-and-delete).
//
// The clock starts on the first read-side event for a file in the directory
// and stops the first time the directory is observed empty. Checking the
// directory itself produces directory events; those never start the clock.
package drain
