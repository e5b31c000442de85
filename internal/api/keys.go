package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// List returns all proxy keys. Secrets are never included.
func (s KeysService) List(ctx context.Context) ([]APIKey, error) {
	var result []APIKey
	if err := s.do(ctx, http.MethodGet, "/api/keys", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Create creates a proxy key. The returned Key is shown once.
func (s KeysService) Create(ctx context.Context, name string) (*APIKey, error) {
	if name == "" {
		return nil, errors.New("key name is required")
	}
	var result APIKey
	if err := s.do(ctx, http.MethodPost, "/api/keys", map[string]string{"name": name}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete revokes a proxy key.
func (s KeysService) Delete(ctx context.Context, id string) error {
	return s.Client.Delete(ctx, "/api/keys/"+url.PathEscape(id))
}
