// Package watch turns filesystem notifications into arrival events.
//
// A Source delivers raw events for one or two watched directories, each
// event carrying the tag of the directory that produced it. The Manager
// reports the files already present at startup, filters events down to the
// kinds that mean "a file has finished arriving" (closed after write, closed
// read-only, moved in) and hands those to the dispatcher.
//
// The inotify backend is the default on Linux. The fsnotify backend is a
// portable fallback that approximates close events by waiting for a file to
// go quiet for the configured settle interval.
package watch
