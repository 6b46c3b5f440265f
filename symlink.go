package ospfs

import "strings"

// Follow implements spec.md §4.7's follow(link): returns the stored target
// string, resolving conditional symlinks of the form "root?PRIMARY:FALLBACK"
// against isSuperuser. The split position is recomputed from the stored
// bytes on every call rather than cached or written back, so the on-image
// record is never mutated by resolution (spec.md §9).
func Follow(ref *InodeRef, isSuperuser bool) (string, error) {
	target, err := ref.SymlinkTarget()
	if err != nil {
		return "", err
	}

	rest, ok := strings.CutPrefix(target, conditionalSymlinkPrefix)
	if !ok {
		return target, nil
	}

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return target, nil
	}

	if isSuperuser {
		return rest[:colon], nil
	}
	return rest[colon+1:], nil
}
