// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	t.Setenv("BACKEND_BASE_URL", ts.URL)
	t.Setenv("BACKEND_INGEST_TOKEN", "test-token")
	cfg := types.DefaultPlannerConfig().Backend
	return New(ts.Client(), secrets.NewSource(""), cfg, nil)
}

func TestFetchMediaDirectStaging(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Internal-Token"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/clip.mp4", body["url"])
		assert.Equal(t, "videofile", body["fieldId"])
		assert.Equal(t, "video", body["kind"])
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/tmp/clip.mp4","kind":"video"}}`))
	})

	c := newTestClient(t, ts)
	res := c.FetchMedia(context.Background(), []string{"https://example.com/clip.mp4"}, "videofile", "video")

	require.True(t, res.OK)
	require.Len(t, res.Attachments, 1)
	assert.Equal(t, "img0", res.Attachments[0].TokenID)
	assert.Equal(t, "https://cdn/tmp/clip.mp4", res.Attachments[0].Staged.TempURL)
	assert.Equal(t, 1, res.Coverage.Succeeded)
	assert.Equal(t, "https://example.com/clip.mp4", res.Provenance.PrimaryURL)
}

func TestFetchMediaFallsBackToEmbeddedImages(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	// Direct staging succeeds with no media; the page has embedded images.
	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(4), body["maxImages"])
		w.Write([]byte(`{"ok":true,"proposedMarkdown":"","attachments":[{"tokenId":"img0","staged":{"tempUrl":"https://cdn/embedded.jpg"}}]}`))
	})

	c := newTestClient(t, ts)
	res := c.FetchMedia(context.Background(), []string{"https://example.com/post"}, "image", "image")

	require.True(t, res.OK)
	require.Len(t, res.Attachments, 1)
	assert.Equal(t, "https://cdn/embedded.jpg", res.Attachments[0].Staged.TempURL)
}

func TestFetchMediaCapturesUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Request-Id", "req-42")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream staging unavailable`))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, ts)
	res := c.FetchMedia(context.Background(), []string{"https://example.com/a"}, "image", "")

	assert.False(t, res.OK)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, types.ErrNotFound, res.Errors[0].Code)

	var backendErr *types.ErrorDetail
	for i := range res.Errors {
		if res.Errors[i].Code == types.ErrBackend {
			backendErr = &res.Errors[i]
			break
		}
	}
	require.NotNil(t, backendErr)
	assert.Equal(t, http.StatusBadGateway, backendErr.Status)
	assert.Equal(t, "req-42", backendErr.RequestID)
	assert.Contains(t, backendErr.BodyPreview, "staging unavailable")
}

func TestFetchMediaTruncatesBodyPreview(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("e", 2000)))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.FetchMedia(context.Background(), []string{"https://example.com/a"}, "image", "")

	var backendErr *types.ErrorDetail
	for i := range res.Errors {
		if res.Errors[i].Code == types.ErrBackend {
			backendErr = &res.Errors[i]
			break
		}
	}
	require.NotNil(t, backendErr)
	assert.True(t, strings.HasSuffix(backendErr.BodyPreview, "…"))
	assert.LessOrEqual(t, len(backendErr.BodyPreview), bodyPreviewLimit+len("…"))
}

func TestFetchMediaAdvancesPastFailedCandidate(t *testing.T) {
	var firstCalls int32
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if strings.Contains(body["url"].(string), "/dead") {
			atomic.AddInt32(&firstCalls, 1)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`staging unavailable`))
			return
		}
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/second.jpg"}}`))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true,"attachments":[]}`))
	})

	c := newTestClient(t, ts)
	res := c.FetchMedia(context.Background(), []string{"https://example.com/dead", "https://example.com/alive"}, "image", "")

	require.True(t, res.OK)
	assert.Equal(t, "https://cdn/second.jpg", res.Attachments[0].Staged.TempURL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&firstCalls))
	assert.Equal(t, 2, res.Coverage.Tried)
	assert.Equal(t, "https://example.com/dead", res.Provenance.PrimaryURL)

	// The dead candidate's failure is visible in the step trace, not as a
	// top-level error on a successful result.
	assert.Empty(t, res.Errors)
	var sawFailedStep bool
	for _, s := range res.Steps {
		if s.URL == "https://example.com/dead" && s.Status == http.StatusBadGateway {
			sawFailedStep = true
		}
	}
	assert.True(t, sawFailedStep)
}

func TestExtractArticleAdvancesPastFailedCandidate(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if strings.Contains(body["url"].(string), "/dead") {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`extractor unavailable`))
			return
		}
		w.Write([]byte(`{"ok":true,"proposedMarkdown":"body"}`))
	})

	c := newTestClient(t, ts)
	res := c.ExtractArticle(context.Background(), []string{"https://example.com/dead", "https://example.com/alive"}, "content")

	require.True(t, res.OK)
	require.NotNil(t, res.Article)
	assert.Equal(t, "body", res.Article.Markdown)
	assert.Len(t, res.Provenance.URLsTried, 2)
	assert.Empty(t, res.Errors)
}

func TestFetchMediaMissingBaseURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")
	c := New(http.DefaultClient, secrets.NewSource(""), types.DefaultPlannerConfig().Backend, nil)

	res := c.FetchMedia(context.Background(), []string{"https://example.com/a"}, "image", "")
	assert.False(t, res.OK)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ErrConfig, res.Errors[0].Code)
}

func TestExtractArticle(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(6), body["maxImages"])
		assert.Equal(t, true, body["withStaging"])
		assert.Equal(t, "content", body["fieldKey"])
		w.Write([]byte(`{"ok":true,"proposedMarkdown":"# Heading\n\nbody","attachments":[{"tokenId":"img0","staged":{"tempUrl":"https://cdn/inline.jpg"}}]}`))
	})

	c := newTestClient(t, ts)
	res := c.ExtractArticle(context.Background(), []string{"https://example.com/article"}, "")

	require.True(t, res.OK)
	require.NotNil(t, res.Article)
	assert.Equal(t, "# Heading\n\nbody", res.Article.Markdown)
	require.Len(t, res.Article.Attachments, 1)
	assert.Equal(t, len(res.Article.Markdown), res.Coverage.TextChars)
	assert.Equal(t, 1, res.Coverage.ImagesStaged)
	assert.Equal(t, []string{"https://example.com/article"}, res.Citations)
}

func TestExtractArticleExhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.ExtractArticle(context.Background(), []string{"https://example.com/a", "https://example.com/b"}, "content")

	assert.False(t, res.OK)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, types.ErrNotFound, res.Errors[0].Code)
	assert.Len(t, res.Provenance.URLsTried, 2)
}

func TestGenerateImage(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/ai/enrichment/generate-image", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a lighthouse at dusk", body["prompt"])
		assert.Equal(t, "square", body["aspect"])
		_, hasWidth := body["width"]
		assert.False(t, hasWidth)
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/generated.png","kind":"image"}}`))
	})

	c := newTestClient(t, ts)
	res := c.GenerateImage(context.Background(), GenerateRequest{
		Prompt:  "a lighthouse at dusk",
		FieldID: "image",
		Aspect:  "square",
	})

	require.True(t, res.OK)
	require.Len(t, res.Attachments, 1)
	assert.Equal(t, "https://cdn/generated.png", res.Attachments[0].Staged.TempURL)
}

func TestGenerateImageEmptyPrompt(t *testing.T) {
	c := New(http.DefaultClient, secrets.NewSource(""), types.DefaultPlannerConfig().Backend, nil)

	res := c.GenerateImage(context.Background(), GenerateRequest{Prompt: "   "})
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, types.ErrValidation, res.Error.Code)
}

func TestGenerateImageUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"prompt rejected"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.GenerateImage(context.Background(), GenerateRequest{Prompt: "p"})

	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, types.ErrBackend, res.Error.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Error.Status)
	assert.Contains(t, res.Error.BodyPreview, "prompt rejected")
}
