package watch

import (
	"os"
	"sort"

	"md5watch/internal/relocate"
)

// InventoryEntry lists the files present in a target when watching began.
type InventoryEntry struct {
	Target relocate.Target
	Names  []string
	Err    error
}

// TakeInventory enumerates the non-directory entries of each target.
// Pre-existing files are reported only; they are not processed.
func TakeInventory(targets []relocate.Target) []InventoryEntry {
	out := make([]InventoryEntry, 0, len(targets))
	for _, target := range targets {
		entry := InventoryEntry{Target: target}
		dirents, err := os.ReadDir(target.Path)
		if err != nil {
			entry.Err = err
			out = append(out, entry)
			continue
		}
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			entry.Names = append(entry.Names, d.Name())
		}
		sort.Strings(entry.Names)
		out = append(out, entry)
	}
	return out
}
