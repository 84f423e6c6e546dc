package openaiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkoskin/chatter/src/chatsdk"
)

const defaultImageBaseURL = "https://api.openai.com/v1"

// GenerateImage produces a single image. With reference images the call is
// routed to the edits endpoint; without, to plain generation.
func (c *Client) GenerateImage(ctx context.Context, req *chatsdk.ImageRequest) (*chatsdk.ImageResult, error) {
	if len(req.ReferenceImages) > 0 {
		return c.editImage(ctx, req)
	}
	return c.createImage(ctx, req)
}

func (c *Client) createImage(ctx context.Context, req *chatsdk.ImageRequest) (*chatsdk.ImageResult, error) {
	logger := c.logger.With("method", "GenerateImage", "model", req.Model)
	logger.Debug("requesting image generation")

	oaReq := openai.ImageRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		N:      1,
	}
	// gpt-image-1 always returns base64 and rejects the parameter.
	if strings.HasPrefix(req.Model, "dall-e") {
		oaReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := c.api(req.Credential).CreateImage(ctx, oaReq)
	if err != nil {
		logger.Error("image generation failed", "error", err)
		return nil, wrapError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		logger.Warn("provider returned no image payload")
		return &chatsdk.ImageResult{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return &chatsdk.ImageResult{
		Image: &chatsdk.Image{Data: data, MIME: "image/png"},
		Text:  resp.Data[0].RevisedPrompt,
	}, nil
}

// editImage posts prompt plus reference images to the edits endpoint.
// go-openai's edit helper is file-path oriented, so the multipart body is
// built by hand here.
func (c *Client) editImage(ctx context.Context, req *chatsdk.ImageRequest) (*chatsdk.ImageResult, error) {
	logger := c.logger.With("method", "editImage", "model", req.Model, "references", len(req.ReferenceImages))
	logger.Debug("requesting image edit")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("model", req.Model); err != nil {
		return nil, err
	}
	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return nil, err
	}
	for i, ref := range req.ReferenceImages {
		field := "image"
		if len(req.ReferenceImages) > 1 {
			field = "image[]"
		}
		part, err := writer.CreateFormFile(field, fmt.Sprintf("reference-%d%s", i, extForMIME(ref.MIME)))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(ref.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	base := c.baseURL
	if base == "" {
		base = defaultImageBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/images/edits", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read edit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	var parsed struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode edit response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		logger.Warn("provider returned no image payload")
		return &chatsdk.ImageResult{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return &chatsdk.ImageResult{
		Image: &chatsdk.Image{Data: data, MIME: "image/png"},
		Text:  parsed.Data[0].RevisedPrompt,
	}, nil
}

func parseAPIError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &chatsdk.ProviderError{
			Provider:   providerID,
			StatusCode: status,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return &chatsdk.ProviderError{
		Provider:   providerID,
		StatusCode: status,
		Code:       errResp.Error.Code,
		Message:    errResp.Error.Message,
	}
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
