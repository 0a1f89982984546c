package storage

import (
	"slices"
)

// DirectoryIndex is a point-in-time view of the bucket grouped by table.
// It is rebuilt for every operation that needs it and never refreshed.
type DirectoryIndex struct {
	files map[string][]ObjectKey
}

// BuildIndex decodes a raw key listing into a DirectoryIndex.
// Tables without objects are simply absent.
func BuildIndex(keys []string) *DirectoryIndex {
	files := make(map[string][]ObjectKey)
	for _, key := range keys {
		k := ParseObjectKey(key)
		files[k.Table] = append(files[k.Table], k)
	}
	return &DirectoryIndex{files: files}
}

// Get returns the objects under table, or an empty slice when the table is unknown.
func (d *DirectoryIndex) Get(table string) []ObjectKey {
	files, ok := d.files[table]
	if !ok {
		return []ObjectKey{}
	}
	return slices.Clone(files)
}

// Has reports whether the listing contained at least one object under table.
func (d *DirectoryIndex) Has(table string) bool {
	_, ok := d.files[table]
	return ok
}

// Tables returns the table names present in the listing, sorted.
func (d *DirectoryIndex) Tables() []string {
	tables := make([]string, 0, len(d.files))
	for t := range d.files {
		tables = append(tables, t)
	}
	slices.Sort(tables)
	return tables
}

// Len is the total number of objects in the listing.
func (d *DirectoryIndex) Len() int {
	n := 0
	for _, files := range d.files {
		n += len(files)
	}
	return n
}

// LastBlock returns the highest block number stored under table.
// Unindexed files are ignored; block 0 counts as a regular checkpoint.
func (d *DirectoryIndex) LastBlock(table string) (uint64, bool) {
	var (
		last  uint64
		found bool
	)
	for _, k := range d.files[table] {
		if !k.Indexed {
			continue
		}
		if !found || k.Block > last {
			last = k.Block
			found = true
		}
	}
	return last, found
}
