package googleclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mkoskin/chatter/src/chatsdk"
)

// GenerateImage requests a single image via generateContent with image
// response modality. Reference images ride along as inline data parts.
func (c *Client) GenerateImage(ctx context.Context, req *chatsdk.ImageRequest) (*chatsdk.ImageResult, error) {
	logger := c.logger.With("method", "GenerateImage", "model", req.Model, "references", len(req.ReferenceImages))
	logger.Debug("requesting image generation")

	parts := []part{{Text: req.Prompt}}
	for _, ref := range req.ReferenceImages {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: ref.MIME,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/models/%s:generateContent", req.Model)
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, req.Credential, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := &chatsdk.ImageResult{Text: textOf(&result)}
	if len(result.Candidates) > 0 {
		for _, p := range result.Candidates[0].Content.Parts {
			if p.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image payload: %w", err)
			}
			out.Image = &chatsdk.Image{Data: data, MIME: p.InlineData.MIMEType}
			break
		}
	}
	if out.Image == nil {
		logger.Warn("provider returned no image payload")
	}
	return out, nil
}
