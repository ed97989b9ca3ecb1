// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"encoding/json"
	"io"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

// mediaEnvelope is the backend media response. The service has shipped four
// payload shapes over time; decodeAttachments is the single place all of
// them are normalized.
type mediaEnvelope struct {
	OK          bool               `json:"ok"`
	Staged      *types.StagedMedia `json:"staged"`
	Attachments []types.Attachment `json:"attachments"`
	Data        json.RawMessage    `json:"data"`
}

// decodeAttachments normalizes the media response body to a flat attachment
// list. Shapes are tried in order:
//
//  1. top-level "staged" object: a single attachment with token id "img0"
//  2. top-level "attachments" list
//  3. "data" object wrapping an "attachments" list
//  4. "data" as a bare attachment list
//
// The boolean reports whether the envelope itself was a success ("ok": true);
// a successful envelope may still carry zero attachments.
func decodeAttachments(r io.Reader) ([]types.Attachment, bool) {
	var env mediaEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, false
	}
	if !env.OK {
		return nil, false
	}

	if env.Staged != nil {
		return []types.Attachment{{TokenID: "img0", Staged: *env.Staged}}, true
	}
	if len(env.Attachments) > 0 {
		return env.Attachments, true
	}
	if len(env.Data) > 0 {
		var wrapped struct {
			Attachments []types.Attachment `json:"attachments"`
		}
		if err := json.Unmarshal(env.Data, &wrapped); err == nil && len(wrapped.Attachments) > 0 {
			return wrapped.Attachments, true
		}
		var list []types.Attachment
		if err := json.Unmarshal(env.Data, &list); err == nil && len(list) > 0 {
			return list, true
		}
	}
	return nil, true
}
