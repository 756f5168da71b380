// Package filestore persists finished export files.
//
// A Store takes ownership of the bytes of a finished file and returns a
// Reference describing where they now live. Backends: LocalStore writes to
// a directory, S3Store uploads to a bucket with the AWS SDK upload
// manager, and MemoryStore keeps files in memory for tests and for the
// "memory" backend.
package filestore
