// Package storage holds the in-memory key-value map shared by all workers.
//
// One lock guards the whole map, so any two commands, on the same key or not,
// observe a single linear history.
package storage
