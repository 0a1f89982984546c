package storage

import (
	"fmt"
	"strconv"
	"strings"
)

const blockExtension = ".json"

// ObjectKey is the decoded identity of one object in the bucket.
// Block files are laid out as table/prefix_N.json where N grows with every sync.
type ObjectKey struct {
	Table   string
	Prefix  string
	Block   uint64
	Indexed bool // false when the filename does not follow prefix_N.json

	// rooted marks a key with an empty first segment ("/name"), so Key() keeps the slash.
	rooted bool
}

// BlockKey returns the key of block n of prefix under table.
func BlockKey(table, prefix string, n uint64) ObjectKey {
	return ObjectKey{Table: table, Prefix: prefix, Block: n, Indexed: true}
}

// ParseObjectKey decomposes an object key into table, prefix and block.
// A name is indexed only when it ends in ".json" and the segment after the last "_"
// is a canonical non-negative integer (no sign, no leading zeros), so "cow_3" and
// "cow_007.json" are not blocks.
// Names that don't carry a trailing block number keep the full filename as Prefix,
// so Key() still points at the original object.
func ParseObjectKey(key string) ObjectKey {
	table, name, found := strings.Cut(key, "/")
	if !found {
		table, name = "", key
	}

	k := ObjectKey{Table: table, Prefix: name, rooted: found && table == ""}

	base, ok := strings.CutSuffix(name, blockExtension)
	if !ok {
		return k
	}
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return k
	}
	// ParseUint also rejects signs, so "cow_-1.json" and "cow_+1.json" stay unindexed.
	n, err := strconv.ParseUint(base[i+1:], 10, 64)
	if err != nil || strconv.FormatUint(n, 10) != base[i+1:] {
		return k
	}

	k.Prefix = base[:i]
	k.Block = n
	k.Indexed = true
	return k
}

// Filename is the object name without the table.
func (k ObjectKey) Filename() string {
	if !k.Indexed {
		return k.Prefix
	}
	return fmt.Sprintf("%s_%d%s", k.Prefix, k.Block, blockExtension)
}

func (k ObjectKey) Key() string {
	if k.Table == "" && !k.rooted {
		return k.Filename()
	}
	return fmt.Sprintf("%s/%s", k.Table, k.Filename())
}

func (k ObjectKey) String() string {
	return k.Key()
}
