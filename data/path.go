package data

import "strings"

// Path convention:
//   - "/" is the root directory.
//   - Files never carry a trailing separator ("a/b.txt").
//   - Directory-marker paths carry exactly one trailing separator ("a/b/").
//   - Paths never start with a separator and never contain redundant ones.
//
// All accessor operations expect paths in this form. Normalization happens
// once at the outer boundary; forwarding between layers never re-normalizes.

// NormalizePath rewrites a raw path into the canonical form above.
// Dot segments are dropped and parent segments resolve against their
// predecessors; a parent segment with nothing left to climb stops at
// root, so a normalized path can never address anything above it.
// Normalizing an already-normalized path yields the identical string.
func NormalizePath(path string) string {
	raw := strings.Split(path, "/")
	last := raw[len(raw)-1]
	trailing := last == "" || last == "." || last == ".."

	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		switch part {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return "/"
	}

	normalized := strings.Join(parts, "/")
	if trailing {
		normalized += "/"
	}

	return normalized
}

// NormalizeDirPath normalizes path and forces the directory marker.
func NormalizeDirPath(path string) string {
	normalized := NormalizePath(path)
	if normalized == "/" {
		return normalized
	}
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	return normalized
}

// NormalizeRoot rewrites a backend root so it always starts and ends with
// a single separator.
func NormalizeRoot(root string) string {
	normalized := NormalizePath(root)
	if normalized == "/" {
		return normalized
	}
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	return "/" + normalized
}

// BuildAbsPath joins a normalized root with a normalized path into the
// backend-native key, without a leading separator.
func BuildAbsPath(root, path string) string {
	prefix := strings.TrimPrefix(NormalizeRoot(root), "/")
	if path == "/" {
		return strings.TrimSuffix(prefix, "/")
	}

	return prefix + path
}

// IsDirPath reports whether a normalized path addresses a directory.
func IsDirPath(path string) bool {
	return strings.HasSuffix(path, "/")
}
