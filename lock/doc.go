// Package lock provides keyed mutual exclusion at two scopes: MemoryManager
// serializes callers sharing a key within one process, WorkerManager
// serializes independent OS processes that share a filesystem via advisory
// file locks. Callers using different keys never block one another.
package lock
