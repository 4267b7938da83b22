// Package cache holds decoded segments and raw blobs in memory.
//
// LRU is a size-bounded least-recently-used map. Entry sizes are reported by
// a caller supplied function and, when a resource.Controller is attached,
// reserved against its global memory limit. An entry that would not fit is
// simply not cached.
package cache
