// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

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

const videosSchema = `{
	"subtype": "videos",
	"version": 3,
	"schema": {"properties": {
		"videofile": {"anyOf": [{"type": "string"}, {"$ref": "#/$defs/StagedMedia"}]},
		"poster": {"anyOf": [{"$ref": "#/$defs/StagedMedia"}]},
		"content": {"type": "string", "x-kind": "markdownWithAttachTokens"},
		"title": {"type": "string"}
	}}
}`

func newTestPlanner(t *testing.T, ts *httptest.Server) *Planner {
	t.Helper()
	t.Setenv("BACKEND_BASE_URL", ts.URL)
	t.Setenv("BACKEND_INGEST_TOKEN", "")
	t.Setenv("TAVILY_API_KEY", "")
	return New(ts.Client(), secrets.NewSource(""), types.DefaultPlannerConfig(), nil)
}

func TestFetchRejectsFieldWithoutContentType(t *testing.T) {
	p := New(http.DefaultClient, secrets.NewSource(""), types.DefaultPlannerConfig(), nil)

	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:     "https://example.com/a",
		FieldID: "videofile",
	})

	assert.False(t, bundle.OK)
	require.Len(t, bundle.Errors, 1)
	assert.Equal(t, types.ErrValidation, bundle.Errors[0].Code)
	assert.Contains(t, bundle.Errors[0].Message, "contentType is required")
}

func TestFetchBundle(t *testing.T) {
	var mediaCalls int32
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "videos", r.URL.Query().Get("subtype"))
		w.Write([]byte(videosSchema))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&mediaCalls, 1)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		field := body["fieldId"].(string)
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/` + field + `.bin","kind":"video"}}`))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true,"proposedMarkdown":"# Video notes\n\nbody","attachments":[]}`))
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head>
			<meta property="og:title" content="Watch Page">
			<meta property="og:description" content="A video page">
		</head></html>`))
	})

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:         ts.URL + "/watch",
		ContentType: "videos",
		Fields:      []string{"videofile", "poster", "content", "title"},
	})

	require.True(t, bundle.OK)

	assert.Equal(t, map[string]string{
		"videofile": types.ContractMedia,
		"poster":    types.ContractMedia,
		"content":   types.ContractArticle,
		"title":     types.ContractGeneric,
	}, bundle.PlannedContracts)

	// One staging pass per media field.
	assert.Equal(t, int32(2), atomic.LoadInt32(&mediaCalls))
	require.Len(t, bundle.MediaByField, 2)
	require.Len(t, bundle.MediaByField["videofile"], 1)
	assert.Equal(t, "https://cdn/videofile.bin", bundle.MediaByField["videofile"][0].Staged.TempURL)
	assert.Equal(t, "https://cdn/poster.bin", bundle.MediaByField["poster"][0].Staged.TempURL)
	assert.Len(t, bundle.Media, 2)

	require.NotNil(t, bundle.Article)
	assert.Equal(t, "# Video notes\n\nbody", bundle.Article.Markdown)

	// Generic runs last and fills page-level defaults.
	assert.Equal(t, "Watch Page", bundle.Title)
	assert.Equal(t, "A video page", bundle.Description)

	assert.Contains(t, bundle.Citations, ts.URL+"/watch")
	assert.Contains(t, bundle.Timings, "mediaMs")
	assert.Contains(t, bundle.Timings, "articleMs")
	assert.Contains(t, bundle.Timings, "generalMs")
	assert.Contains(t, bundle.Timings, "totalMsAll")
}

func TestFetchBundleWithoutMediaFields(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(videosSchema))
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Watch Page"></head></html>`))
	})

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:         ts.URL + "/watch",
		ContentType: "videos",
		Fields:      []string{"title"},
	})

	require.True(t, bundle.OK)
	assert.Nil(t, bundle.MediaByField)
	assert.Empty(t, bundle.Media)
	assert.Equal(t, "Watch Page", bundle.Title)
}

func TestFetchBundleSurvivesSchemaFailure(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Still Works"></head></html>`))
	})

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:         ts.URL + "/page",
		ContentType: "articles",
		Fields:      []string{"title"},
	})

	// Schemaless classification degrades every field to generic.
	require.True(t, bundle.OK)
	assert.Equal(t, types.ContractGeneric, bundle.PlannedContracts["title"])
	assert.Equal(t, "Still Works", bundle.Title)

	var sawSchemaErr bool
	for _, s := range bundle.Debug.Steps {
		if s.Event == "schema_load" && s.Err != "" {
			sawSchemaErr = true
		}
	}
	assert.True(t, sawSchemaErr)
}

func TestFetchBundleExplicitContractsUnion(t *testing.T) {
	var generateCalls int32
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"subtype": "words",
			"schema": {"properties": {
				"image": {"x-generation": {"promptTemplate": "Illustrate {word}"}},
				"title": {"type": "string"}
			}}
		}`))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/generate-image", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&generateCalls, 1)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Illustrate serendipity", body["prompt"])
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/gen.png","kind":"image"}}`))
	})
	mux.HandleFunc("/word", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Serendipity"></head></html>`))
	})

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:         ts.URL + "/word",
		ContentType: "words",
		FieldID:     "image",
		Fields:      []string{"image", "title"},
		Contracts:   []string{types.ContractGeneratedMedia},
		FormValues:  map[string]string{"word": "serendipity"},
	})

	require.True(t, bundle.OK)
	assert.Equal(t, int32(1), atomic.LoadInt32(&generateCalls))
	require.NotNil(t, bundle.Generation)
	assert.True(t, bundle.Generation.Success)
	require.Len(t, bundle.Media, 1)
	assert.Equal(t, "Serendipity", bundle.Title)
}

func TestFetchSinglePageLevel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`<html><head>
			<meta property="og:title" content="Plain Page">
			<meta property="og:description" content="A description">
		</head></html>`))
	}))
	defer ts.Close()

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{URL: ts.URL + "/page"})

	require.True(t, bundle.OK)
	assert.Equal(t, map[string]string{"default": types.ContractGeneric}, bundle.PlannedContracts)
	assert.Equal(t, "Plain Page", bundle.Title)
	assert.Equal(t, "A description", bundle.Description)
	require.NotNil(t, bundle.Coverage)
	assert.True(t, bundle.Coverage.Title)
	assert.Contains(t, bundle.Citations, ts.URL+"/page")
	assert.Contains(t, bundle.Timings, "generalMs")
}

func TestFetchSingleTargetContractOverridesInference(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(videosSchema))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/extract-article-media", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true,"proposedMarkdown":"forced article","attachments":[]}`))
	})

	p := newTestPlanner(t, ts)
	// videofile would classify as media; the override wins.
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:            "https://example.com/a",
		FieldID:        "videofile",
		ContentType:    "videos",
		TargetContract: types.ContractArticle,
	})

	require.True(t, bundle.OK)
	assert.Equal(t, map[string]string{"videofile": types.ContractArticle}, bundle.PlannedContracts)
	require.NotNil(t, bundle.Article)
	assert.Equal(t, "forced article", bundle.Article.Markdown)
}

func TestFetchSingleThreadRunsPageLevel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Thread Title"></head></html>`))
	}))
	defer ts.Close()

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:            ts.URL + "/thread",
		TargetContract: types.ContractThread,
	})

	require.True(t, bundle.OK)
	assert.Equal(t, map[string]string{"default": types.ContractThread}, bundle.PlannedContracts)
	assert.Equal(t, "Thread Title", bundle.Title)
}

func TestFetchSingleMediaField(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/api/v1/forms/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(videosSchema))
	})
	mux.HandleFunc("/api/v1/ai/enrichment/fetch-media", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "videofile", body["fieldId"])
		assert.Equal(t, "video", body["kind"])
		w.Write([]byte(`{"ok":true,"staged":{"tempUrl":"https://cdn/v.mp4","kind":"video"}}`))
	})

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{
		URL:         "https://example.com/clip.mp4",
		FieldID:     "videofile",
		ContentType: "videos",
	})

	require.True(t, bundle.OK)
	assert.Equal(t, map[string]string{"videofile": types.ContractMedia}, bundle.PlannedContracts)
	require.Len(t, bundle.Media, 1)
	assert.Equal(t, "https://cdn/v.mp4", bundle.Media[0].Staged.TempURL)
	require.Len(t, bundle.MediaByField["videofile"], 1)
}

func TestFetchSingleExhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	p := newTestPlanner(t, ts)
	bundle := p.Fetch(context.Background(), types.FetchRequest{URL: ts.URL + "/gone"})

	assert.False(t, bundle.OK)
	require.NotEmpty(t, bundle.Errors)
	assert.Equal(t, types.ErrNotFound, bundle.Errors[0].Code)
	assert.Equal(t, []string{ts.URL + "/gone"}, bundle.Provenance.URLsTried)
}
