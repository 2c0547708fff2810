package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/kikiluvv/autoclip/internal/describe"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/script"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Config describes an OpenAI-compatible chat endpoint
type Config struct {
	BaseURL     string
	APIKey      string
	VisionModel string
	ChatModel   string
	Timeout     time.Duration
	Temperature float64
}

// Client talks to the understanding and script-generation models
type Client struct {
	logger zerolog.Logger
	client openai.Client
	cfg    Config
}

// New creates a client; retries are left to the caller
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		logger: logger.With().Str("component", "llm").Logger(),
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// Describe sends one or more JPEG frames to the vision model and expects
// an object carrying a desc string and a tag array
func (c *Client) Describe(ctx context.Context, req describe.Request) (describe.Description, error) {
	const op = "llm.describe"
	if len(req.Images) == 0 {
		return describe.Description{}, errs.Errorf(errs.Invalid, op, "no images")
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, openai.TextContentPart(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Role),
			openai.UserMessage(parts),
		},
		Model:       c.cfg.VisionModel,
		Temperature: openai.Float(c.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}

	start := time.Now()
	raw, err := c.complete(ctx, op, params)
	if err != nil {
		return describe.Description{}, err
	}

	c.logger.Debug().
		Int("images", len(req.Images)).
		Dur("took", time.Since(start)).
		Msg("vision response received")

	return parseDescription(op, raw)
}

// Generate asks the chat model for a JSON document matching req.Schema and
// returns the raw reply. Endpoints that reject JSON schemas are retried in
// plain JSON mode.
func (c *Client) Generate(ctx context.Context, req script.GenerateRequest) (string, error) {
	const op = "llm.generate"

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Role),
			openai.UserMessage(req.Prompt),
		},
		Model:       c.cfg.ChatModel,
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String("ordered clips of a short highlight video"),
					Strict:      openai.Bool(true),
					Schema:      req.Schema,
				},
			},
		}
	}

	raw, err := c.complete(ctx, op, params)
	if err != nil && req.Schema != nil && shouldFallbackJSONMode(err) {
		c.logger.Warn().Err(err).Msg("endpoint rejected json schema, retrying in json mode")
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		raw, err = c.complete(ctx, op, params)
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (c *Client) complete(ctx context.Context, op string, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.Errorf(errs.Malformed, op, "model returned no choices")
	}
	raw := cleanReply(resp.Choices[0].Message.Content)
	if raw == "" {
		return "", errs.Errorf(errs.Malformed, op, "model returned an empty reply")
	}
	return raw, nil
}

// classify maps transport and API failures onto error kinds
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == 408, code == 429, code >= 500:
			return errs.E(errs.Transient, op, err)
		default:
			return errs.E(errs.Invalid, op, err)
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return errs.E(errs.Transient, op, err)
	}
	return errs.E(errs.Transient, op, fmt.Errorf("request failed: %w", err))
}

func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if msg == "" {
		return false
	}
	if strings.Contains(msg, "json_schema") || strings.Contains(msg, "response_format") {
		return true
	}
	return strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema")
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)
	fence      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// cleanReply strips reasoning blocks and markdown fences around a JSON reply
func cleanReply(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return s
}

func parseDescription(op, raw string) (describe.Description, error) {
	if !gjson.Valid(raw) {
		return describe.Description{}, errs.Errorf(errs.Malformed, op, "reply is not JSON: %.120s", raw)
	}

	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return describe.Description{}, errs.Errorf(errs.Malformed, op, "reply is not an object")
	}

	desc := doc.Get("desc")
	if desc.Type != gjson.String {
		return describe.Description{}, errs.Errorf(errs.Malformed, op, "reply has no desc string")
	}

	tag := doc.Get("tag")
	if !tag.IsArray() {
		return describe.Description{}, errs.Errorf(errs.Malformed, op, "reply has no tag list")
	}

	var tags []string
	for _, t := range tag.Array() {
		if t.Type == gjson.String {
			tags = append(tags, t.String())
		}
	}

	return describe.Description{Desc: desc.String(), Tags: tags}, nil
}
