// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend is the client for the enrichment backend service, which
// performs the heavy staging work: fetching remote media into temporary
// storage, extracting articles to markdown with inline images, and
// generating images from prompts. All operations return structured results
// rather than errors so callers can degrade per candidate.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/enrich-engine/internal/secrets"
	"github.com/pdiddy/enrich-engine/pkg/types"
)

// bodyPreviewLimit bounds the upstream body captured into an ErrorDetail.
const bodyPreviewLimit = 800

// Client calls the enrichment backend.
type Client struct {
	client  *http.Client
	secrets *secrets.Source
	cfg     types.BackendConfig
	log     *zap.Logger
}

// New returns a backend Client. A nil logger is replaced with a no-op logger.
func New(client *http.Client, src *secrets.Source, cfg types.BackendConfig, log *zap.Logger) *Client {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 6
	}
	if cfg.FallbackImages <= 0 {
		cfg.FallbackImages = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, secrets: src, cfg: cfg, log: log}
}

// post sends one JSON request to a backend endpoint and returns the raw
// response. The internal token header is attached when configured.
func (c *Client) post(ctx context.Context, endpoint string, body any) (*http.Response, error) {
	base := c.secrets.BackendBaseURL()
	if base == "" {
		return nil, fmt.Errorf("backend base URL not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if token := c.secrets.BackendToken(); token != "" {
		req.Header.Set("X-Internal-Token", token)
	}
	return c.client.Do(req)
}

// upstreamError captures a non-success backend response as a structured
// error: status, the request id echoed by the service, and a truncated body
// preview for debugging.
func upstreamError(op, src string, resp *http.Response) types.ErrorDetail {
	preview := ""
	if data, err := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit+1)); err == nil {
		preview = string(data)
		if len(preview) > bodyPreviewLimit {
			preview = preview[:bodyPreviewLimit] + "…"
		}
	}
	return types.ErrorDetail{
		Code:        types.ErrBackend,
		Message:     fmt.Sprintf("HTTP %d from %s", resp.StatusCode, op),
		URL:         src,
		Status:      resp.StatusCode,
		RequestID:   resp.Header.Get("X-Request-Id"),
		BodyPreview: strings.TrimSpace(preview),
	}
}

// MediaResult is the outcome of a media staging pass.
type MediaResult struct {
	OK          bool
	FieldID     string
	Attachments []types.Attachment
	Coverage    types.Coverage
	Provenance  types.Provenance
	Errors      []types.ErrorDetail
	Steps       []types.DebugStep
	ElapsedMs   int64
}

// FetchMedia stages media for fieldID from the first candidate that yields
// attachments. Direct staging is tried first; when the URL is a page rather
// than a media file, embedded-image extraction runs as a fallback. A non-2xx
// status or empty result advances to the next candidate.
func (c *Client) FetchMedia(ctx context.Context, candidates []string, fieldID, kind string) MediaResult {
	start := time.Now()
	res := MediaResult{FieldID: fieldID}

	if c.secrets.BackendBaseURL() == "" {
		res.Errors = append(res.Errors, types.ErrorDetail{
			Code:    types.ErrConfig,
			Message: "BACKEND_BASE_URL not set",
		})
		return res
	}

	var tried []string
	for _, src := range candidates {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		tried = append(tried, src)

		attachments := c.stageDirect(ctx, src, fieldID, kind, &res)
		if len(attachments) == 0 {
			attachments = c.stageEmbedded(ctx, src, fieldID, &res)
		}
		if len(attachments) > 0 {
			res.OK = true
			res.Attachments = attachments
			res.Coverage = types.Coverage{Tried: len(tried), Succeeded: 1}
			res.Provenance = types.Provenance{PrimaryURL: tried[0], URLsTried: tried}
			// Earlier candidate failures stay in the step trace only; a
			// success result carries no errors.
			res.Errors = nil
			res.ElapsedMs = time.Since(start).Milliseconds()
			return res
		}
	}

	res.Coverage = types.Coverage{Tried: len(tried)}
	res.Provenance = types.Provenance{URLsTried: tried}
	if len(tried) > 0 {
		res.Provenance.PrimaryURL = tried[0]
	}
	res.Errors = append([]types.ErrorDetail{{
		Code:    types.ErrNotFound,
		Message: "no media could be fetched from provided URLs",
	}}, res.Errors...)
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res
}

// stageDirect asks the backend to stage the URL itself as media.
func (c *Client) stageDirect(ctx context.Context, src, fieldID, kind string, res *MediaResult) []types.Attachment {
	body := map[string]any{"url": src, "fieldId": fieldID}
	if kind != "" {
		body["kind"] = kind
	}

	t0 := time.Now()
	resp, err := c.post(ctx, "/api/v1/ai/enrichment/fetch-media", body)
	if err != nil {
		res.Steps = append(res.Steps, types.DebugStep{Event: "fetch_media", URL: src, Err: err.Error()})
		return nil
	}
	defer resp.Body.Close()
	res.Steps = append(res.Steps, types.DebugStep{
		Event:     "fetch_media",
		URL:       src,
		Status:    resp.StatusCode,
		ElapsedMs: time.Since(t0).Milliseconds(),
	})

	if resp.StatusCode >= 400 {
		res.Errors = append(res.Errors, upstreamError("fetch-media", src, resp))
		return nil
	}
	attachments, _ := decodeAttachments(resp.Body)
	return attachments
}

// stageEmbedded extracts images embedded in the page at src and returns
// their staged attachments. Used when direct staging finds nothing.
func (c *Client) stageEmbedded(ctx context.Context, src, fieldID string, res *MediaResult) []types.Attachment {
	art := c.extractOne(ctx, src, fieldID, c.cfg.FallbackImages, &res.Steps, &res.Errors)
	if art == nil {
		return nil
	}
	return art.Attachments
}

// ArticleResult is the outcome of an article extraction pass.
type ArticleResult struct {
	OK         bool
	FieldID    string
	Article    *types.Article
	Citations  []string
	Coverage   types.Coverage
	Provenance types.Provenance
	Errors     []types.ErrorDetail
	Steps      []types.DebugStep
	ElapsedMs  int64
}

// ExtractArticle converts the first extractable candidate to markdown with
// staged inline images.
func (c *Client) ExtractArticle(ctx context.Context, candidates []string, fieldID string) ArticleResult {
	start := time.Now()
	res := ArticleResult{FieldID: fieldID}

	if c.secrets.BackendBaseURL() == "" {
		res.Errors = append(res.Errors, types.ErrorDetail{
			Code:    types.ErrConfig,
			Message: "BACKEND_BASE_URL not set",
		})
		return res
	}

	var tried []string
	for _, src := range candidates {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		tried = append(tried, src)

		art := c.extractOne(ctx, src, fieldID, c.cfg.MaxImages, &res.Steps, &res.Errors)
		if art == nil || (art.Markdown == "" && len(art.Attachments) == 0) {
			continue
		}

		res.OK = true
		res.Article = art
		res.Citations = []string{src}
		res.Coverage = types.Coverage{
			TextChars:    len(art.Markdown),
			ImagesFound:  len(art.Attachments),
			ImagesStaged: len(art.Attachments),
		}
		res.Provenance = types.Provenance{URLsTried: tried}
		// Earlier candidate failures stay in the step trace only; a success
		// result carries no errors.
		res.Errors = nil
		res.ElapsedMs = time.Since(start).Milliseconds()
		return res
	}

	res.Provenance = types.Provenance{URLsTried: tried}
	res.Errors = append([]types.ErrorDetail{{
		Code:    types.ErrNotFound,
		Message: "could not extract markdown from provided URLs",
	}}, res.Errors...)
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res
}

// extractOne runs one extract-article-media call. Returns nil when the call
// failed or the envelope was not a success; errors and steps are appended to
// the caller's slices.
func (c *Client) extractOne(ctx context.Context, src, fieldID string, maxImages int, steps *[]types.DebugStep, errs *[]types.ErrorDetail) *types.Article {
	fieldKey := fieldID
	if fieldKey == "" {
		fieldKey = "content"
	}
	body := map[string]any{
		"url":         src,
		"maxImages":   maxImages,
		"withStaging": true,
		"fieldKey":    fieldKey,
	}

	t0 := time.Now()
	resp, err := c.post(ctx, "/api/v1/ai/enrichment/extract-article-media", body)
	if err != nil {
		*steps = append(*steps, types.DebugStep{Event: "extract_article", URL: src, Err: err.Error()})
		return nil
	}
	defer resp.Body.Close()
	*steps = append(*steps, types.DebugStep{
		Event:     "extract_article",
		URL:       src,
		Status:    resp.StatusCode,
		ElapsedMs: time.Since(t0).Milliseconds(),
	})

	if resp.StatusCode >= 400 {
		*errs = append(*errs, upstreamError("extract-article-media", src, resp))
		return nil
	}

	var wire struct {
		OK               bool               `json:"ok"`
		ProposedMarkdown string             `json:"proposedMarkdown"`
		Attachments      []types.Attachment `json:"attachments"`
		CanonicalURL     string             `json:"canonicalUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil || !wire.OK {
		return nil
	}
	return &types.Article{Markdown: wire.ProposedMarkdown, Attachments: wire.Attachments}
}

// GenerateRequest describes one image generation call.
type GenerateRequest struct {
	Prompt         string
	FieldID        string
	NegativePrompt string
	Aspect         string
	Style          string
	Width          int
	Height         int
}

// GenerateResult is the outcome of an image generation call.
type GenerateResult struct {
	OK          bool
	Attachments []types.Attachment
	Error       *types.ErrorDetail
	Steps       []types.DebugStep
	ElapsedMs   int64
}

// GenerateImage asks the backend to generate and stage an image.
func (c *Client) GenerateImage(ctx context.Context, req GenerateRequest) GenerateResult {
	start := time.Now()
	res := GenerateResult{}

	if strings.TrimSpace(req.Prompt) == "" {
		res.Error = &types.ErrorDetail{Code: types.ErrValidation, Message: "prompt is required"}
		return res
	}
	if c.secrets.BackendBaseURL() == "" {
		res.Error = &types.ErrorDetail{Code: types.ErrConfig, Message: "BACKEND_BASE_URL not set"}
		return res
	}

	body := map[string]any{"prompt": req.Prompt}
	if req.FieldID != "" {
		body["fieldId"] = req.FieldID
	}
	if req.NegativePrompt != "" {
		body["negativePrompt"] = req.NegativePrompt
	}
	if req.Aspect != "" {
		body["aspect"] = req.Aspect
	}
	if req.Style != "" {
		body["style"] = req.Style
	}
	if req.Width > 0 {
		body["width"] = req.Width
	}
	if req.Height > 0 {
		body["height"] = req.Height
	}

	t0 := time.Now()
	resp, err := c.post(ctx, "/api/v1/ai/enrichment/generate-image", body)
	if err != nil {
		res.Error = &types.ErrorDetail{Code: types.ErrNetwork, Message: err.Error()}
		res.ElapsedMs = time.Since(start).Milliseconds()
		return res
	}
	defer resp.Body.Close()
	res.Steps = append(res.Steps, types.DebugStep{
		Event:     "generate_image",
		Status:    resp.StatusCode,
		ElapsedMs: time.Since(t0).Milliseconds(),
	})

	if resp.StatusCode >= 400 {
		detail := upstreamError("generate-image", "", resp)
		res.Error = &detail
		res.ElapsedMs = time.Since(start).Milliseconds()
		return res
	}

	attachments, ok := decodeAttachments(resp.Body)
	if !ok || len(attachments) == 0 {
		res.Error = &types.ErrorDetail{Code: types.ErrProtocol, Message: "no staged media in generation response"}
		res.ElapsedMs = time.Since(start).Milliseconds()
		return res
	}

	c.log.Debug("image generated", zap.Int("attachments", len(attachments)))
	res.OK = true
	res.Attachments = attachments
	res.ElapsedMs = time.Since(start).Milliseconds()
	return res
}
