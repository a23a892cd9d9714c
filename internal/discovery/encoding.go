package discovery

import "strings"

// Sentinel is the character that replaces path separators when a project
// path is encoded as a transcript directory name.
const Sentinel = "-"

// EncodePath converts an absolute project path to its transcript directory
// name: every path separator becomes the sentinel, so /home/a/proj becomes
// -home-a-proj.
func EncodePath(path string) string {
	return strings.ReplaceAll(path, "/", Sentinel)
}

// DecodePath reverses EncodePath, turning a transcript directory name back
// into a local filesystem path.
func DecodePath(encoded string) string {
	return strings.ReplaceAll(encoded, Sentinel, "/")
}
