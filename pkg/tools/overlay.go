package tools

import (
	"context"
	"fmt"
	"strings"

	"bonesagent/pkg/overlay"
	"bonesagent/pkg/wire"
)

// SharedStore is the overlay-store surface the local tools use.
type SharedStore interface {
	Publish(ctx context.Context, doc overlay.Document, domain string, tags []string) (string, error)
	SearchExact(ctx context.Context, domain string, limit int) ([]overlay.Summary, error)
	SearchSimilar(ctx context.Context, queryText, excludeDomain string, limit int) ([]overlay.Summary, error)
	Get(ctx context.Context, key string) (*overlay.Document, error)
	Available(ctx context.Context) bool
}

// HostCaller performs a silent tool round-trip with the host: the call
// is executed natively but not surfaced to the user.
type HostCaller interface {
	CallHost(ctx context.Context, name string, input map[string]any) (*wire.ToolResult, error)
}

// OverlayTools builds the locally-executed shared-overlay tools. The
// store handle is lazy: it is first created when a tool actually needs
// it, and every operation tolerates the store being unreachable.
type OverlayTools struct {
	Store  func(ctx context.Context) (SharedStore, error)
	Host   HostCaller
	Domain func() string
}

type publishOverlayRequest struct {
	ID          string   `json:"id" jsonschema_description:"ID of the saved overlay to publish"`
	Name        string   `json:"name" jsonschema_description:"Human-readable name"`
	Description string   `json:"description" jsonschema_description:"What the overlay does; used for discovery"`
	Tags        []string `json:"tags,omitempty" jsonschema_description:"Keywords to aid discovery"`
	HTML        string   `json:"html,omitempty" jsonschema_description:"Overlay HTML; when omitted, the saved overlay source is read from disk"`
}

type searchSharedRequest struct {
	Domain string `json:"domain,omitempty" jsonschema_description:"Domain to search (defaults to the current page's domain)"`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Max results (default 10)"`
}

type findSimilarRequest struct {
	Query string `json:"query" jsonschema_description:"What kind of overlay to look for"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Max results (default 5)"`
}

type installSharedRequest struct {
	Key string `json:"key" jsonschema_description:"Store key of the shared overlay (bones:overlay:<domain>:<id>)"`
}

func (t *OverlayTools) Definitions() []Definition {
	return []Definition{
		Local("publish_overlay",
			"Publish a saved overlay to the shared overlay store so other sessions "+
				"can discover and install it. Reads the overlay HTML from disk unless "+
				"html is given.",
			t.publish),
		Local("search_shared_overlays",
			"List shared overlays published for a domain (defaults to the current "+
				"page's domain).",
			t.searchExact),
		Local("find_similar_overlays",
			"Find shared overlays semantically similar to a description, across all "+
				"domains except the current one.",
			t.findSimilar),
		Local("install_shared_overlay",
			"Fetch a shared overlay from the store by key, save it locally and "+
				"display it.",
			t.install),
	}
}

func (t *OverlayTools) store(ctx context.Context) (SharedStore, *Result) {
	s, err := t.Store(ctx)
	if err != nil {
		return nil, Errorf("shared overlay store unavailable: %v", err)
	}
	return s, nil
}

func (t *OverlayTools) publish(ctx context.Context, req publishOverlayRequest) *Result {
	if req.ID == "" || req.Name == "" {
		return Errorf("publish_overlay requires id and name")
	}
	html := req.HTML
	if html == "" {
		res, err := t.Host.CallHost(ctx, "read_overlay_source", map[string]any{"id": req.ID})
		if err != nil {
			return Errorf("could not read overlay source: %v", err)
		}
		if res.IsError {
			return Errorf("could not read overlay source: %s", res.Text)
		}
		html = res.Text
	}
	s, fail := t.store(ctx)
	if fail != nil {
		return fail
	}
	key, err := s.Publish(ctx, overlay.Document{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		HTML:        html,
	}, t.Domain(), req.Tags)
	if err != nil {
		return Errorf("publish failed: %v", err)
	}
	return TextResult(fmt.Sprintf("Published %q to the shared store (key: %s).", req.Name, key))
}

func (t *OverlayTools) searchExact(ctx context.Context, req searchSharedRequest) *Result {
	domain := req.Domain
	if domain == "" {
		domain = t.Domain()
	}
	if domain == "" {
		return Errorf("no domain to search; pass one explicitly")
	}
	s, fail := t.store(ctx)
	if fail != nil {
		return fail
	}
	hits, err := s.SearchExact(ctx, domain, req.Limit)
	if err != nil {
		return Errorf("search failed: %v", err)
	}
	if len(hits) == 0 {
		return TextResult("No shared overlays found for " + domain + ".")
	}
	return TextResult(formatSummaries(hits, false))
}

func (t *OverlayTools) findSimilar(ctx context.Context, req findSimilarRequest) *Result {
	if req.Query == "" {
		return Errorf("find_similar_overlays requires a query")
	}
	s, fail := t.store(ctx)
	if fail != nil {
		return fail
	}
	hits, err := s.SearchSimilar(ctx, req.Query, t.Domain(), req.Limit)
	if err != nil {
		return Errorf("similarity search failed: %v", err)
	}
	if len(hits) == 0 {
		return TextResult("No similar shared overlays found.")
	}
	return TextResult(formatSummaries(hits, true))
}

func (t *OverlayTools) install(ctx context.Context, req installSharedRequest) *Result {
	if req.Key == "" {
		return Errorf("install_shared_overlay requires a key")
	}
	s, fail := t.store(ctx)
	if fail != nil {
		return fail
	}
	doc, err := s.Get(ctx, req.Key)
	if err != nil {
		return Errorf("fetch failed: %v", err)
	}
	res, err := t.Host.CallHost(ctx, "save_overlay", map[string]any{
		"id":          doc.ID,
		"name":        doc.Name,
		"description": doc.Description,
		"html":        doc.HTML,
		"width":       doc.Width,
		"height":      doc.Height,
		"position":    doc.Position,
	})
	if err != nil {
		return Errorf("could not save overlay locally: %v", err)
	}
	if res.IsError {
		return Errorf("could not save overlay locally: %s", res.Text)
	}
	return TextResult(fmt.Sprintf("Installed %q from %s and displayed it.", doc.Name, doc.Domain))
}

func formatSummaries(hits []overlay.Summary, withScore bool) string {
	var b strings.Builder
	b.WriteString("Shared overlays:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s (key: %s, domain: %s)", h.Name, h.Key, h.Domain)
		if withScore {
			fmt.Fprintf(&b, " [distance %.3f]", h.Score)
		}
		if h.Description != "" {
			b.WriteString(": " + h.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
