package handlers

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
)

const namespaceSep = "__"

// namespacedName builds the {pkg}__{tool} id the catalog always presents.
func namespacedName(pkg, tool string) string {
	return pkg + namespaceSep + tool
}

// splitNamespaced splits a "{pkg}__{tool}" id into its parts. ok is false if
// toolID does not contain the separator in a non-degenerate position.
func splitNamespaced(toolID string) (prefix, short string, ok bool) {
	idx := strings.Index(toolID, namespaceSep)
	if idx <= 0 || idx+len(namespaceSep) >= len(toolID) {
		return "", "", false
	}
	return toolID[:idx], toolID[idx+len(namespaceSep):], true
}

// resolveToolID reconciles an explicit package_id against a tool_id that may
// itself be namespaced, so that use_tool("fs__read_file", args) and
// use_tool(package_id="fs", tool_id="read_file", args) resolve to the same
// (package, tool) pair.
func resolveToolID(packageID, toolID string) (pkg, tool string, ok bool) {
	prefix, short, hasNamespace := splitNamespaced(toolID)
	switch {
	case packageID != "" && hasNamespace && prefix == packageID:
		return packageID, short, true
	case packageID != "" && !hasNamespace:
		return packageID, toolID, true
	case packageID == "" && hasNamespace:
		return prefix, short, true
	case packageID != "" && hasNamespace && prefix != packageID:
		// an explicit package_id always wins; the tool_id is taken literally
		return packageID, toolID, true
	default:
		return "", "", false
	}
}

// globToRegex translates a shell-glob name_pattern into an anchored,
// case-insensitive regular expression: consecutive '*' collapse to one,
// '*' becomes '.*', '?' becomes '.', everything else is escaped literally.
func globToRegex(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	prevStar := false
	for _, r := range pattern {
		if r == '*' {
			if prevStar {
				continue
			}
			prevStar = true
			b.WriteString(".*")
			continue
		}
		prevStar = false
		if r == '?' {
			b.WriteString(".")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// encodeCursor and decodeCursor implement list_tools' opaque pagination
// cursor as a base64-encoded offset into the sorted tool list.
func encodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, newError(CodeInvalidParams, "invalid cursor")
	}
	offset, err := strconv.Atoi(string(data))
	if err != nil || offset < 0 {
		return 0, newError(CodeInvalidParams, "invalid cursor")
	}
	return offset, nil
}
