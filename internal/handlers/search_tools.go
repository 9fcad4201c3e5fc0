package handlers

import (
	"context"
	"sort"
	"strings"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
)

// SearchIndex ranks tools against a free-text query. True BM25 ranking over
// the catalog is out of scope for this router; SearchIndex is the seam a
// real index would plug into. scoreMatch below is a simple substring/term
// overlap scorer, not a BM25 implementation.
type SearchIndex interface {
	Search(query string, candidates []ToolView) []ToolView
}

type defaultSearchIndex struct{}

func (defaultSearchIndex) Search(query string, candidates []ToolView) []ToolView {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		view  ToolView
		score int
	}
	var hits []scored
	for _, c := range candidates {
		haystack := strings.ToLower(c.Name + " " + c.Description + " " + c.Summary)
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{view: c, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].view.Name < hits[j].view.Name
	})

	out := make([]ToolView, len(hits))
	for i, hit := range hits {
		out[i] = hit.view
	}
	return out
}

// SearchToolsParams is search_tools' input.
type SearchToolsParams struct {
	Query string
	Limit int
}

// SearchToolsResult is search_tools' output.
type SearchToolsResult struct {
	Tools []ToolView
}

const defaultSearchLimit = 20

// SearchTools ranks cached, ready tools against a free-text query, applying
// the same security annotations list_tools does.
func (h *Handlers) SearchTools(ctx context.Context, params SearchToolsParams) (*SearchToolsResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, newError(CodeInvalidParams, "query must not be empty")
	}

	policy := h.Policy()
	var candidates []ToolView
	for _, pkg := range h.Registry.Packages() {
		if pkg.Visibility == config.VisibilityHidden {
			continue
		}
		entry, ok := h.Catalog.Entry(pkg.ID)
		if !ok || entry.Status != catalog.StatusReady {
			continue
		}
		for _, tool := range entry.Tools {
			shortName := strings.TrimPrefix(tool.Name, pkg.ID+namespaceSep)
			decision := policy.EvaluateTool(pkg.ID, shortName)
			candidates = append(candidates, ToolView{
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

	index := h.Search
	if index == nil {
		index = defaultSearchIndex{}
	}
	ranked := index.Search(params.Query, candidates)

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return &SearchToolsResult{Tools: ranked}, nil
}
