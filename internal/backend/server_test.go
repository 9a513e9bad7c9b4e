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
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/storage"
)

func heading(t *testing.T, id, text string) domain.Element {
	t.Helper()
	el, err := domain.NewElement(id, domain.TypeHeading, domain.Position{X: 40, Y: 40}, 0)
	require.NoError(t, err)
	el.Content.(*domain.HeadingContent).Text = text
	return el
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(
		domain.Section{ID: "s1", ProposalID: "p", Title: "Intro", OrderIndex: 0,
			Elements: []domain.Element{heading(t, "h1", "Welcome")}},
		domain.Section{ID: "s2", ProposalID: "p", Title: "Pricing", OrderIndex: 1},
	)
	reg := prometheus.NewRegistry()
	saver := autosave.New(store, autosave.WithMetrics(autosave.NewMetrics(reg)))
	srv := NewServer(cfg, store, saver, reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestHealthAndVersion(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(ts.URL + p)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
		assert.NotEmpty(t, b, p)
	}
}

func TestClientRoundTrip(t *testing.T) {
	ts, store := newTestServer(t, Config{})
	c := NewClient(ts.URL+"/", "")
	ctx := context.Background()

	list, err := c.ListSections(ctx, "p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].ID)

	sec, err := c.GetSection(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sec.Elements, 1)
	assert.Equal(t, "Welcome", sec.Elements[0].Content.(*domain.HeadingContent).Text)

	els := append(sec.Elements, heading(t, "h2", "Scope"))
	title := "Introduction"
	saved, err := c.SaveSection(ctx, "s1", els, &title)
	require.NoError(t, err)
	assert.Equal(t, "Introduction", saved.Title)
	assert.Len(t, saved.Elements, 2)
	assert.Equal(t, 1, store.Saves())

	_, err = c.GetSection(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRemoteNotFound))
}

func TestSectionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	c := NewClient(ts.URL, "")
	ctx := context.Background()

	created, err := c.CreateSection(ctx, "p", "Team")
	require.NoError(t, err)
	assert.Equal(t, 2, created.OrderIndex)

	require.NoError(t, c.ReorderSections(ctx, "p", []string{created.ID, "s2", "s1"}))
	list, err := c.ListSections(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID, "s2", "s1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	err = c.ReorderSections(ctx, "p", []string{"s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	require.NoError(t, c.DeleteSection(ctx, "s2"))
	list, err = c.ListSections(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPutRejectsInvalidElements(t *testing.T) {
	ts, store := newTestServer(t, Config{})
	cases := map[string]string{
		"unknown kind":  `{"elements":[{"id":"x","type":"sparkle","position":{"x":0,"y":0},"width":10,"height":10}]}`,
		"zero size":     `{"elements":[{"id":"x","type":"shape","content":{},"position":{"x":0,"y":0},"width":0,"height":10}]}`,
		"duplicate ids": `{"elements":[{"id":"x","type":"shape","content":{},"position":{"x":0,"y":0},"width":5,"height":5},{"id":"x","type":"shape","content":{},"position":{"x":0,"y":0},"width":5,"height":5}]}`,
		"no elements":   `{"title":"t"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/sections/s1", strings.NewReader(body))
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, store.Saves())
}

func TestPutReportsStoreFailure(t *testing.T) {
	ts, store := newTestServer(t, Config{})
	store.FailSaves(errors.New("disk full"))
	c := NewClient(ts.URL, "")
	_, err := c.SaveSection(context.Background(), "s1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, err = c.SaveSection(context.Background(), "s1", nil, nil)
	require.NoError(t, err)
}

func TestPreviewAndThumbnail(t *testing.T) {
	ts, _ := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/preview/sections/s1")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(b)
	assert.Contains(t, page, "Welcome")
	assert.Contains(t, page, "pc-readonly")
	assert.NotContains(t, page, "data-element-id")

	resp, err = http.Get(ts.URL + "/preview/sections/s1/thumbnail.png?width=200")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	resp2, err := http.Get(ts.URL + "/preview/sections/s1/thumbnail.png?width=abc")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	resp3, err := http.Get(ts.URL + "/preview/sections/nope")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, Config{})
	c := NewClient(ts.URL, "")
	_, err := c.SaveSection(context.Background(), "s2", nil, nil)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(b), `proposalcanvas_saves_total{result="success"} 1`)
}

func TestAuthOnMutatingRoutes(t *testing.T) {
	ts, _ := newTestServer(t, Config{AuthSecret: "s3cret", DevTokens: true})
	ctx := context.Background()

	// Reads stay open.
	_, err := NewClient(ts.URL, "").GetSection(ctx, "s1")
	require.NoError(t, err)

	_, err = NewClient(ts.URL, "").SaveSection(ctx, "s1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	resp, err := http.Post(ts.URL+"/api/auth/token", "application/json", bytes.NewReader([]byte(`{"subject":"ana"}`)))
	require.NoError(t, err)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	resp.Body.Close()
	require.NotEmpty(t, tok.Token)

	_, err = NewClient(ts.URL, tok.Token).SaveSection(ctx, "s1", nil, nil)
	require.NoError(t, err)
}

func TestTokenEndpointHiddenWithoutDevTokens(t *testing.T) {
	ts, _ := newTestServer(t, Config{AuthSecret: "s3cret"})
	resp, err := http.Post(ts.URL+"/api/auth/token", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyToken(t *testing.T) {
	tok, err := signToken("k", "ana", time.Now().Add(time.Minute))
	require.NoError(t, err)
	sub, err := verifyToken("k", tok)
	require.NoError(t, err)
	assert.Equal(t, "ana", sub)

	_, err = verifyToken("other", tok)
	assert.ErrorIs(t, err, errTokenSig)

	old, err := signToken("k", "ana", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = verifyToken("k", old)
	assert.ErrorIs(t, err, errTokenExpired)

	_, err = verifyToken("k", "garbage")
	assert.ErrorIs(t, err, errTokenFormat)
}
