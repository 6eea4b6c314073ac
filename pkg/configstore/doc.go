// Package configstore persists whole configuration objects under a key.
//
// A Store pairs a Backend (one file per key, a SQLite table, or BadgerDB) with
// a Codec (gob by default, TOML for human-edited files). Every Save replaces
// the entry; Load decodes into a fresh value and never returns a partially
// populated one. LoadOrCreate recovers from missing or corrupt entries by
// writing a default in their place.
package configstore
