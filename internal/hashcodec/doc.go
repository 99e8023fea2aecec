// Package hashcodec parses the MD5 token embedded at the start of an arriving
// filename and computes the content digest of a file by streaming it through
// an MD5 accumulator in fixed-size chunks.
//
// The token format matches the output of the Linux md5sum command: 32
// hexadecimal characters in either case, read from the first 32 characters of
// the name and nothing else. A name without a well-formed token is not an error; callers treat
// it as a malformed arrival.
package hashcodec
