/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"proposalcanvas/internal/domain"
)

// ErrRemoteNotFound is returned when the server answers 404.
var ErrRemoteNotFound = errors.New("remote: not found")

// Client talks to a proposalcanvas server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new client. baseURL may include a trailing slash.
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
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
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
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrRemoteNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// ListSections returns the sections of a proposal ordered by order_index.
func (c *Client) ListSections(ctx context.Context, proposalID string) ([]domain.Section, error) {
	var list []domain.Section
	if err := c.doJSON(ctx, http.MethodGet, "/api/proposals/"+url.PathEscape(proposalID)+"/sections", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetSection fetches one section with its elements.
func (c *Client) GetSection(ctx context.Context, id string) (domain.Section, error) {
	var sec domain.Section
	err := c.doJSON(ctx, http.MethodGet, "/api/sections/"+url.PathEscape(id), nil, &sec)
	return sec, err
}

// SaveSection replaces the element list of a section, and its title when
// title is not nil. It returns the stored section.
func (c *Client) SaveSection(ctx context.Context, id string, els []domain.Element, title *string) (domain.Section, error) {
	if els == nil {
		els = []domain.Element{}
	}
	body := struct {
		Elements []domain.Element `json:"elements"`
		Title    *string          `json:"title,omitempty"`
	}{els, title}
	var sec domain.Section
	err := c.doJSON(ctx, http.MethodPut, "/api/sections/"+url.PathEscape(id), body, &sec)
	return sec, err
}

// CreateSection appends a section to a proposal.
func (c *Client) CreateSection(ctx context.Context, proposalID, title string) (domain.Section, error) {
	var sec domain.Section
	err := c.doJSON(ctx, http.MethodPost, "/api/proposals/"+url.PathEscape(proposalID)+"/sections",
		map[string]string{"title": title}, &sec)
	return sec, err
}

// DeleteSection removes a section.
func (c *Client) DeleteSection(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/sections/"+url.PathEscape(id), nil, nil)
}

// ReorderSections sets the order of a proposal's sections.
func (c *Client) ReorderSections(ctx context.Context, proposalID string, ids []string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/proposals/"+url.PathEscape(proposalID)+"/sections/order",
		map[string][]string{"ids": ids}, nil)
}
