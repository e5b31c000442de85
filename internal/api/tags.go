package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/costlens/costlens-cli/internal/query"
)

// List returns one page of tags.
func (s TagsService) List(ctx context.Context, filter TagFilter) (*Page[Tag], error) {
	qs, err := query.EncodeStruct(filter)
	if err != nil {
		return nil, err
	}
	var result Page[Tag]
	if err := s.do(ctx, http.MethodGet, query.Append("/api/tags", qs), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// All pages through every tag.
func (s TagsService) All(ctx context.Context) ([]Tag, error) {
	var all []Tag
	filter := TagFilter{Page: 1, PageSize: 100}
	for {
		page, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore || len(page.Items) == 0 {
			return all, nil
		}
		filter.Page++
	}
}

// Create creates a tag.
func (s TagsService) Create(ctx context.Context, req CreateTagRequest) (*Tag, error) {
	if req.Name == "" {
		return nil, errors.New("tag name is required")
	}
	var result Tag
	if err := s.do(ctx, http.MethodPost, "/api/tags", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete deletes a tag by ID.
func (s TagsService) Delete(ctx context.Context, id string) error {
	return s.Client.Delete(ctx, "/api/tags/"+url.PathEscape(id))
}
