// Package mmap maps segment files read-only into memory.
//
// Unix platforms use mmap(2) and honor access hints through madvise(2).
// Windows uses CreateFileMapping/MapViewOfFile and ignores hints.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch the slice returned by Bytes once Close returns.
package mmap
