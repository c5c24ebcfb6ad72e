package data

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "/"},
		{"root", "/", "/"},
		{"separators_only", "///", "/"},
		{"plain_file", "a/b.txt", "a/b.txt"},
		{"leading_separator", "/a/b.txt", "a/b.txt"},
		{"redundant_separators", "a//b///c.txt", "a/b/c.txt"},
		{"dir_marker", "a/b/", "a/b/"},
		{"dir_marker_redundant", "/a//b//", "a/b/"},
		{"single_segment", "file.txt", "file.txt"},
		{"dot_segment", "a/./b.txt", "a/b.txt"},
		{"leading_dot", "./a.txt", "a.txt"},
		{"dot_only", ".", "/"},
		{"parent_resolves", "a/../b.txt", "b.txt"},
		{"parent_collapses_to_root", "a/..", "/"},
		{"parent_escape_clamped", "../secret.txt", "secret.txt"},
		{"parent_escape_chain", "../../etc/passwd", "etc/passwd"},
		{"parent_keeps_dir_marker", "a/b/..", "a/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := NormalizePath(tc.input)
			if result != tc.expected {
				t.Errorf("NormalizePath(%q) = %q, expected %q", tc.input, result, tc.expected)
			}

			// Normalizing a second time must be a no-op.
			again := NormalizePath(result)
			if again != result {
				t.Errorf("NormalizePath(%q) = %q, not idempotent", result, again)
			}
		})
	}
}

func TestNormalizeDirPath(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/", "/"},
		{"a/b", "a/b/"},
		{"a/b/", "a/b/"},
		{"/a//b", "a/b/"},
	}

	for _, tc := range cases {
		if result := NormalizeDirPath(tc.input); result != tc.expected {
			t.Errorf("NormalizeDirPath(%q) = %q, expected %q", tc.input, result, tc.expected)
		}
	}
}

func TestNormalizeRoot(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/", "/"},
		{"data", "/data/"},
		{"/data", "/data/"},
		{"data/sub/", "/data/sub/"},
	}

	for _, tc := range cases {
		if result := NormalizeRoot(tc.input); result != tc.expected {
			t.Errorf("NormalizeRoot(%q) = %q, expected %q", tc.input, result, tc.expected)
		}
	}
}

func TestBuildAbsPath(t *testing.T) {
	cases := []struct {
		root     string
		path     string
		expected string
	}{
		{"/", "a/b.txt", "a/b.txt"},
		{"/data", "a/b.txt", "data/a/b.txt"},
		{"/data/", "a/b/", "data/a/b/"},
		{"/data", "/", "data"},
		{"/", "/", ""},
	}

	for _, tc := range cases {
		if result := BuildAbsPath(tc.root, tc.path); result != tc.expected {
			t.Errorf("BuildAbsPath(%q, %q) = %q, expected %q", tc.root, tc.path, result, tc.expected)
		}
	}
}

func TestIsDirPath(t *testing.T) {
	if !IsDirPath("a/b/") {
		t.Error("expected 'a/b/' to be a directory path")
	}
	if !IsDirPath("/") {
		t.Error("expected '/' to be a directory path")
	}
	if IsDirPath("a/b.txt") {
		t.Error("expected 'a/b.txt' to not be a directory path")
	}
}
