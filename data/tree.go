package data

import "strings"

// CollapseEntries turns a key-ordered flat listing below dirPath into the
// entries visible at the requested depth. Entries deeper than depth are
// collapsed into a single synthesized directory marker at the cut-off
// level. depth 0 keeps everything. Flat stores that only persist file keys
// use this to present implicit directories.
func CollapseEntries(flat []*Entry, dirPath string, depth int) []*Entry {
	prefix := ""
	if dirPath != "/" {
		prefix = dirPath
	}

	var entries []*Entry
	seen := make(map[string]struct{})

	for _, entry := range flat {
		if !strings.HasPrefix(entry.Path, prefix) || entry.Path == dirPath {
			continue
		}

		relative := strings.TrimPrefix(entry.Path, prefix)
		levels := strings.Count(strings.TrimSuffix(relative, "/"), "/") + 1

		if depth > 0 && levels > depth {
			parts := strings.SplitN(relative, "/", depth+1)
			marker := prefix + strings.Join(parts[:depth], "/") + "/"
			if _, ok := seen[marker]; !ok {
				seen[marker] = struct{}{}
				entries = append(entries, &Entry{
					Path:     marker,
					Metadata: Metadata{Mode: EntryModeDir},
				})
			}
			continue
		}

		if _, ok := seen[entry.Path]; !ok {
			seen[entry.Path] = struct{}{}
			entries = append(entries, entry)
		}
	}

	return entries
}
