package workersai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/hansard-backend/internal/clients/llm"
	"github.com/yungbote/hansard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/hansard-backend/internal/pkg/httpx"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

// Client is the Cloudflare Workers AI surface. It is the primary leg of both
// the embedding chain and the chat chain; OpenAI covers the fallback.
type Client interface {
	llm.Provider
	llm.Embedder
}

const embedDimension = 768

type client struct {
	log        *logger.Logger
	baseURL    string
	accountID  string
	apiToken   string
	chatModel  string
	embedModel string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	accountID := strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID"))
	if accountID == "" {
		return nil, fmt.Errorf("missing CLOUDFLARE_ACCOUNT_ID")
	}

	apiToken := strings.TrimSpace(os.Getenv("CLOUDFLARE_API_TOKEN"))
	if apiToken == "" {
		return nil, fmt.Errorf("missing CLOUDFLARE_API_TOKEN")
	}

	baseURL := strings.TrimSpace(os.Getenv("WORKERS_AI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	chatModel := strings.TrimSpace(os.Getenv("WORKERS_AI_CHAT_MODEL"))
	if chatModel == "" {
		chatModel = "@cf/meta/llama-3.1-8b-instruct"
	}

	embedModel := strings.TrimSpace(os.Getenv("WORKERS_AI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "@cf/baai/bge-base-en-v1.5"
	}

	timeoutSec := 120
	if v := os.Getenv("WORKERS_AI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("WORKERS_AI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "WorkersAIClient"),
		baseURL:    baseURL,
		accountID:  accountID,
		apiToken:   apiToken,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) Name() string   { return "workers-ai" }
func (c *client) Model() string  { return c.chatModel }
func (c *client) Dimension() int { return embedDimension }

func (c *client) runPath(model string) string {
	return fmt.Sprintf("/accounts/%s/ai/run/%s", c.accountID, model)
}

type workersAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *workersAIHTTPError) Error() string {
	return fmt.Sprintf("workers-ai http %d: %s", e.StatusCode, e.Body)
}

func (e *workersAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &workersAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) run(ctx context.Context, model string, body any, result any) error {
	path := c.runPath(model)
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			var env apiEnvelope
			if uErr := json.Unmarshal(raw, &env); uErr != nil {
				return fmt.Errorf("workers-ai decode error: %w; raw=%s", uErr, string(raw))
			}
			if !env.Success {
				return fmt.Errorf("workers-ai api error: %s", formatAPIErrors(env.Errors))
			}
			if result == nil {
				return nil
			}
			if uErr := json.Unmarshal(env.Result, result); uErr != nil {
				return fmt.Errorf("workers-ai result decode error: %w; raw=%s", uErr, string(env.Result))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Workers AI request retrying",
			"model", model,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func formatAPIErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Text []string `json:"text"`
}

type embeddingsResult struct {
	Shape []int       `json:"shape"`
	Data  [][]float32 `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var result embeddingsResult
	if err := c.run(ctx, c.embedModel, embeddingsRequest{Text: clean}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(clean) {
		return nil, fmt.Errorf("workers-ai embeddings count mismatch: requested=%d returned=%d model=%s", len(clean), len(result.Data), c.embedModel)
	}
	for i := range result.Data {
		if len(result.Data[i]) == 0 {
			return nil, fmt.Errorf("workers-ai embeddings empty vector at index %d model=%s", i, c.embedModel)
		}
	}
	return result.Data, nil
}

// -------------------- Chat --------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResult struct {
	Response string `json:"response"`
}

func buildMessages(system, user string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	return msgs
}

func (c *client) GenerateText(ctx context.Context, system string, user string, opts llm.GenerateOptions) (string, error) {
	req := chatRequest{
		Messages:    buildMessages(system, user),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}

	var result chatResult
	if err := c.run(ctx, c.chatModel, req, &result); err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", errors.New("empty completion")
	}
	return result.Response, nil
}

func (c *client) StreamText(ctx context.Context, system string, user string, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	reqBody := chatRequest{
		Messages:    buildMessages(system, user),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
		Stream:      true,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), "POST", c.baseURL+c.runPath(c.chatModel), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &workersAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	// Stream frames are `data: {"response":"<delta>"}` terminated by
	// `data: [DONE]`.
	var full strings.Builder
	br := bufio.NewReader(resp.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			if data == "[DONE]" {
				break
			}
			continue
		}

		var chunk chatResult
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onDelta != nil {
				onDelta(chunk.Response)
			}
		}
	}

	return full.String(), nil
}
