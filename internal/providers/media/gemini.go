package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/storage"
)

// GeminiOptions configures the Gemini image runner.
type GeminiOptions struct {
	APIKey        string
	BaseURL       string
	HTTPClient    *http.Client
	Logger        infra.Logger
	Store         *storage.FileStore
	PublicBaseURL string
}

// GeminiRunner generates images through the Gemini generateContent API.
// Inline image bytes are written to the blob store and exposed as URLs.
// Without an API key it produces deterministic placeholder images so the
// whole persistence path stays exercised in local and CI environments.
type GeminiRunner struct {
	apiKey        string
	baseURL       string
	client        *http.Client
	logger        infra.Logger
	store         *storage.FileStore
	publicBaseURL string
}

func NewGeminiRunner(opts GeminiOptions) *GeminiRunner {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiRunner{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		client:        client,
		logger:        opts.Logger,
		store:         opts.Store,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

type geminiImageRequest struct {
	Contents   []geminiImageContent `json:"contents"`
	Tools      []geminiImageTool    `json:"tools,omitempty"`
	ToolConfig *geminiImageConfig   `json:"tool_config,omitempty"`
}

type geminiImageContent struct {
	Role  string            `json:"role,omitempty"`
	Parts []geminiImagePart `json:"parts,omitempty"`
}

type geminiImagePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiInline   `json:"inlineData,omitempty"`
	FileData   *geminiFileData `json:"fileData,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiImageTool struct {
	ImageGeneration *struct{} `json:"image_generation,omitempty"`
}

type geminiImageConfig struct {
	ImageGenerationConfig *geminiImageGenConfig `json:"image_generation_config,omitempty"`
}

type geminiImageGenConfig struct {
	NumberOfImages int `json:"number_of_images,omitempty"`
}

type geminiImageResponse struct {
	Candidates []struct {
		Content geminiImageContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

func (g *GeminiRunner) Run(ctx context.Context, modelID string, input RunInput) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.apiKey == "" {
		return g.placeholder(ctx, modelID, input)
	}

	urls, err := g.remote(ctx, modelID, input)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no media", domain.ErrProviderFailure)
	}
	return urls, nil
}

func (g *GeminiRunner) remote(ctx context.Context, modelID string, input RunInput) ([]string, error) {
	parts := []geminiImagePart{{Text: buildRemotePrompt(input)}}
	for _, ref := range input.ReferenceImageURLs {
		if ref = strings.TrimSpace(ref); ref != "" {
			parts = append(parts, geminiImagePart{FileData: &geminiFileData{FileURI: ref}})
		}
	}
	payload := geminiImageRequest{
		Contents: []geminiImageContent{{Role: "user", Parts: parts}},
		Tools:    []geminiImageTool{{ImageGeneration: &struct{}{}}},
		ToolConfig: &geminiImageConfig{
			ImageGenerationConfig: &geminiImageGenConfig{NumberOfImages: 1},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode image request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(modelID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build image request: %v", domain.ErrProviderFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini image call: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var out geminiImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode gemini image response: %v", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode >= 300 {
		msg := out.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: gemini image: %s", domain.ErrProviderFailure, msg)
	}

	var urls []string
	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.InlineData != nil && part.InlineData.Data != "":
				data, decErr := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if decErr != nil || len(data) == 0 {
					continue
				}
				stored, stErr := g.storeImage(ctx, input, data, part.InlineData.MimeType)
				if stErr != nil {
					g.logger.Warn().Err(stErr).
						Str("project_id", input.ProjectID).
						Int("scene_index", input.SceneIndex).
						Msg("media: persist inline image failed")
					continue
				}
				urls = append(urls, stored)
			case part.FileData != nil && part.FileData.FileURI != "":
				urls = append(urls, part.FileData.FileURI)
			case strings.TrimSpace(part.Text) != "":
				// Some models answer with a JSON body carrying URLs.
				var doc any
				if json.Unmarshal([]byte(part.Text), &doc) == nil {
					urls = append(urls, NormalizeOutput(doc)...)
				}
			}
		}
	}
	return urls, nil
}

func (g *GeminiRunner) placeholder(ctx context.Context, modelID string, input RunInput) ([]string, error) {
	seed := placeholderSeed(modelID, input)
	data, err := renderPlaceholder(seed, input.AspectRatio)
	if err != nil {
		return nil, err
	}
	stored, err := g.storeImage(ctx, input, data, "image/png")
	if err != nil {
		return nil, err
	}
	g.logger.Debug().
		Str("project_id", input.ProjectID).
		Int("scene_index", input.SceneIndex).
		Int("image_index", input.ImageIndex).
		Msg("media: generated placeholder image")
	return []string{stored}, nil
}

func (g *GeminiRunner) storeImage(ctx context.Context, input RunInput, data []byte, mime string) (string, error) {
	ext := ".png"
	if strings.Contains(strings.ToLower(mime), "jpeg") {
		ext = ".jpg"
	}
	key := fmt.Sprintf("generated/%s/scene-%02d/image-%02d%s",
		input.ProjectID, input.SceneIndex, input.ImageIndex, ext)

	if g.store == nil {
		return "", fmt.Errorf("%w: no blob store configured", domain.ErrProviderFailure)
	}
	saved, err := g.store.Write(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("%w: store image: %v", domain.ErrProviderFailure, err)
	}
	if g.publicBaseURL == "" {
		return saved, nil
	}
	return g.publicBaseURL + "/" + saved, nil
}

func buildRemotePrompt(input RunInput) string {
	prompt := strings.TrimSpace(input.Prompt)
	if neg := strings.TrimSpace(input.NegativePrompt); neg != "" {
		prompt += " Avoid: " + neg + "."
	}
	return prompt
}

func placeholderSeed(modelID string, input RunInput) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%s",
		modelID, input.ProjectID, input.SceneIndex, input.ImageIndex, input.Prompt)))
	return hex.EncodeToString(sum[:8])
}

func renderPlaceholder(seed, aspectRatio string) ([]byte, error) {
	width, height := 512, 512
	switch aspectRatio {
	case "16:9":
		width, height = 640, 360
	case "9:16":
		width, height = 360, 640
	case "4:3":
		width, height = 512, 384
	case "3:4":
		width, height = 384, 512
	}

	raw, _ := hex.DecodeString(seed)
	var r, gch, b uint8 = 0x88, 0x88, 0x88
	if len(raw) >= 3 {
		r, gch, b = raw[0], raw[1], raw[2]
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: r, G: gch, B: b, A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

var _ Runner = (*GeminiRunner)(nil)
