/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package retouch talks to the generative image-edit service. Every call is
// one round trip: current image plus a natural-language instruction in, the
// retouched image out.
package retouch

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
)

// ServiceError describes a rejected or failed edit request. Blocked is set
// when the service refused the instruction on content-policy grounds; those
// are shopper errors, not outages, and must not trip retry logic.
type ServiceError struct {
	Status  int
	Message string
	Blocked bool
}

func (e *ServiceError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("retouch: instruction rejected: %s", e.Message)
	}
	return fmt.Sprintf("retouch: service error (HTTP %d): %s", e.Status, e.Message)
}

// Client is an HTTP client for the retouch service.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewClient creates a retouch client. baseURL may include a trailing slash;
// it will be normalized. Edits can take tens of seconds.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type editRequest struct {
	MIME        string          `json:"mime"`
	Image       string          `json:"image"` // base64
	Instruction string          `json:"instruction"`
	Hotspot     *domain.Hotspot `json:"hotspot,omitempty"`
}

type editResponse struct {
	MIME    string `json:"mime"`
	Image   string `json:"image"` // base64
	Error   string `json:"error,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
}

// RequestEdit submits one retouch and returns the edited image. The hotspot,
// when present, anchors the instruction to a point on the page.
func (c *Client) RequestEdit(ctx context.Context, img domain.Image, instruction string, hotspot *domain.Hotspot) (domain.Image, error) {
	if strings.TrimSpace(instruction) == "" {
		return domain.Image{}, &ServiceError{Status: http.StatusBadRequest, Message: "empty instruction"}
	}
	u, err := url.Parse(c.BaseURL + "/v1/edits")
	if err != nil {
		return domain.Image{}, err
	}
	body, err := json.Marshal(editRequest{
		MIME:        img.MIME,
		Image:       base64.StdEncoding.EncodeToString(img.Data),
		Instruction: instruction,
		Hotspot:     hotspot,
	})
	if err != nil {
		return domain.Image{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return domain.Image{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Image{}, err
	}
	defer resp.Body.Close()

	var out editResponse
	dec := json.NewDecoder(resp.Body)
	if derr := dec.Decode(&out); derr != nil && resp.StatusCode == http.StatusOK {
		return domain.Image{}, fmt.Errorf("retouch: decode response: %w", derr)
	}
	if resp.StatusCode != http.StatusOK || out.Blocked {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return domain.Image{}, &ServiceError{Status: resp.StatusCode, Message: msg, Blocked: out.Blocked}
	}
	data, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return domain.Image{}, fmt.Errorf("retouch: decode image payload: %w", err)
	}
	if len(data) == 0 {
		return domain.Image{}, &ServiceError{Status: resp.StatusCode, Message: "service returned no image"}
	}
	mime := out.MIME
	if mime == "" {
		mime = img.MIME
	}
	return domain.Image{MIME: mime, Data: data}, nil
}
