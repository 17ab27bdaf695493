/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend implements the design-sync service and the kiosk's client
// for it. The server keeps template page originals plus every persisted
// design revision in Postgres; the client is what the editor session talks
// to for originals and long-term saves.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartwish/internal/domain"
	"smartwish/internal/preview"
)

// Client is an HTTP client for the design-sync backend API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a backend client. baseURL may include a trailing slash;
// it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// FetchOriginalPage downloads the pristine page image for a template.
func (c *Client) FetchOriginalPage(ctx context.Context, id domain.TemplateID, page domain.PageIndex) (domain.Image, error) {
	var env pageEnvelope
	path := fmt.Sprintf("/api/templates/%s/pages/%d", url.PathEscape(string(id)), page)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return domain.Image{}, err
	}
	data, err := base64.StdEncoding.DecodeString(env.Image)
	if err != nil {
		return domain.Image{}, fmt.Errorf("backend: decode page image: %w", err)
	}
	return domain.Image{MIME: env.MIME, Data: data}, nil
}

// PersistEditedPage uploads the final edited page, with a gallery thumbnail
// computed locally so the backend never resamples images. Returns the new
// revision id.
func (c *Client) PersistEditedPage(ctx context.Context, id domain.TemplateID, page domain.PageIndex, img domain.Image) (string, error) {
	req := map[string]any{
		"template_id": string(id),
		"page_index":  int(page),
		"mime":        img.MIME,
		"image":       base64.StdEncoding.EncodeToString(img.Data),
	}
	if thumb, err := preview.Thumbnail(img, 0); err == nil {
		req["preview"] = base64.StdEncoding.EncodeToString(thumb.Data)
	}
	var resp struct {
		Revision string `json:"revision"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/designs", req, &resp); err != nil {
		return "", err
	}
	if resp.Revision == "" {
		return "", fmt.Errorf("backend: persist returned no revision")
	}
	return resp.Revision, nil
}

// SearchTemplates queries the card template catalog. All arguments are
// optional; zero values mean "no filter".
func (c *Client) SearchTemplates(ctx context.Context, q TemplateSearchQuery) ([]TemplateHit, error) {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	for _, t := range q.Tags {
		v.Add("tag", t)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", fmt.Sprint(q.Offset))
	}
	path := "/api/templates/search"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var hits []TemplateHit
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// ListDesigns returns the saved designs with their latest revision ids.
func (c *Client) ListDesigns(ctx context.Context) ([]domain.SavedDesign, error) {
	var list []domain.SavedDesign
	if err := c.doJSON(ctx, http.MethodGet, "/api/designs", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
