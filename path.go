package compositefs

import "strings"

// CleanURI normalizes a virtual path: leading, trailing and repeated
// slashes are removed, so the root is the empty string. Segments are kept
// literally; "." and ".." have no special meaning.
func CleanURI(uri string) string {
	if !strings.Contains(uri, "//") {
		return strings.Trim(uri, "/")
	}

	segments := strings.Split(uri, "/")
	out := segments[:0]
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// splitFirst splits the first segment off a clean uri
func splitFirst(uri string) (name, rest string) {
	if i := strings.IndexByte(uri, '/'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}

// JoinURI joins two clean virtual paths, either of which may be empty
func JoinURI(base, rel string) string {
	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	default:
		return base + "/" + rel
	}
}

// RelativeURI returns other relative to base if other is base itself or
// lies below it. The match is done on whole segments, so "/music" is not a
// prefix of "/musicals".
func RelativeURI(base, other string) (string, bool) {
	if !strings.HasPrefix(other, base) {
		return "", false
	}

	rest := other[len(base):]
	if rest == "" {
		return "", true
	}
	if rest[0] != '/' {
		// base ending in a slash already marks the boundary
		if base != "" && base[len(base)-1] == '/' {
			return rest, true
		}
		return "", false
	}
	return strings.TrimLeft(rest, "/"), true
}

// uriAncestors returns every proper ancestor of a clean uri, root first
func uriAncestors(uri string) []string {
	ancestors := []string{""}
	for i := 0; i < len(uri); i++ {
		if uri[i] == '/' {
			ancestors = append(ancestors, uri[:i])
		}
	}
	if uri == "" {
		return nil
	}
	return ancestors
}
