package handlers

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
)

// defaultPageSize bounds list_tools' page size when the caller gives none.
const defaultPageSize = 50

// ListToolsParams is list_tools' input.
type ListToolsParams struct {
	Cursor      string
	NamePattern string
	PageSize    int
}

// ToolView is one tool as reported to the agent: the catalog entry's shape
// plus the security decision that applies to it.
type ToolView struct {
	Name          string
	PackageID     string
	Description   string
	Summary       string
	InputSchema   map[string]interface{}
	SchemaHash    string
	ArgsSkeleton  map[string]interface{}
	Blocked       bool
	BlockedReason string
	UserDisabled  bool
}

// ListToolsResult is list_tools' output.
type ListToolsResult struct {
	Tools      []ToolView
	NextCursor string
	ETag       string
}

// ListTools paginates the already-cached catalog: it never triggers a
// connect or an upstream list_tools round trip itself. list_tool_packages
// and use_tool are what populate the cache; listing stays cheap even when an
// upstream package is slow or unreachable.
func (h *Handlers) ListTools(ctx context.Context, params ListToolsParams) (*ListToolsResult, error) {
	offset, err := decodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var nameRe *regexp.Regexp
	if params.NamePattern != "" {
		nameRe, err = globToRegex(params.NamePattern)
		if err != nil {
			return nil, newError(CodeInvalidParams, "invalid name_pattern: %v", err)
		}
	}

	policy := h.Policy()
	var all []ToolView
	for _, pkg := range h.Registry.Packages() {
		if pkg.Visibility == config.VisibilityHidden {
			continue
		}
		entry, ok := h.Catalog.Entry(pkg.ID)
		if !ok || entry.Status != catalog.StatusReady {
			continue
		}
		for _, tool := range entry.Tools {
			if nameRe != nil && !nameRe.MatchString(tool.Name) {
				continue
			}
			shortName := strings.TrimPrefix(tool.Name, pkg.ID+namespaceSep)
			decision := policy.EvaluateTool(pkg.ID, shortName)
			all = append(all, ToolView{
				Name:          tool.Name,
				PackageID:     pkg.ID,
				Description:   tool.Description,
				Summary:       tool.Summary,
				InputSchema:   tool.InputSchema,
				SchemaHash:    tool.SchemaHash,
				ArgsSkeleton:  tool.ArgsSkeleton,
				Blocked:       decision.Blocked,
				BlockedReason: decision.Reason,
				UserDisabled:  decision.UserDisabled,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset > len(all) {
		offset = len(all)
	}
	end := offset + pageSize
	var next string
	if end < len(all) {
		next = encodeCursor(end)
	} else {
		end = len(all)
	}

	return &ListToolsResult{Tools: all[offset:end], NextCursor: next, ETag: h.Catalog.ETag()}, nil
}
