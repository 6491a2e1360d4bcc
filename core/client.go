package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pierceboggan/byok-foundry-local/config"
)

// Daemon routes. The chat surface is OpenAI-compatible; management routes
// follow the local daemon's control API.
const (
	statusPath = "/openai/status"
	modelsPath = "/openai/models"
	loadPath   = "/openai/load"
	unloadPath = "/openai/unload"
	chatPath   = "/v1/chat/completions"
)

// SettingsSource yields the current connection settings. Each call reflects
// live configuration values.
type SettingsSource interface {
	Load() (config.Settings, error)
}

// DaemonClient handles all HTTP communication with the local inference
// daemon, with a uniform timeout and retry policy across endpoints.
type DaemonClient struct {
	settings   SettingsSource
	logger     *Logger
	httpClient *http.Client

	// sleep is the backoff wait, injectable so tests don't sit through the
	// exponential schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDaemonClient creates a new daemon API client
func NewDaemonClient(settings SettingsSource, logger *Logger) *DaemonClient {
	return &DaemonClient{
		settings:   settings,
		logger:     logger,
		httpClient: &http.Client{},
		sleep:      sleepContext,
	}
}

// backoffDelay returns the wait before retry n (counted from 0): 2^n seconds.
func backoffDelay(retry int) time.Duration {
	return time.Duration(1<<uint(retry)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// makeRequest performs one HTTP request against the daemon
func (c *DaemonClient) makeRequest(ctx context.Context, s config.Settings, method, path string, body interface{}, stream bool) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	url := s.BaseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// doJSON runs a non-streaming request through the retry/backoff loop and
// returns the status code and body. Transport failures are retried up to
// MaxRetries with 1s, 2s, 4s... waits; the last error is wrapped in an
// UnreachableError once the budget is exhausted.
func (c *DaemonClient) doJSON(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	s, err := c.settings.Load()
	if err != nil {
		return 0, nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt - 1)
			c.logger.Debugf("Retrying %s %s in %s (attempt %d/%d)", method, path, wait, attempt+1, s.MaxRetries+1)
			if err := c.sleep(ctx, wait); err != nil {
				return 0, nil, err
			}
		}

		code, data, err := c.attemptJSON(ctx, s, method, path, body)
		if err == nil {
			return code, data, nil
		}
		lastErr = err
	}

	c.logger.Errorf("Daemon unreachable after %d attempts: %v", s.MaxRetries+1, lastErr)
	return 0, nil, &UnreachableError{Endpoint: s.BaseURL(), Err: lastErr}
}

// attemptJSON is a single timeout-bounded attempt.
func (c *DaemonClient) attemptJSON(ctx context.Context, s config.Settings, method, path string, body interface{}) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	resp, err := c.makeRequest(attemptCtx, s, method, path, body, false)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// CheckStatus probes the daemon. A daemon that is down is reported in the
// returned snapshot, never as an error.
func (c *DaemonClient) CheckStatus(ctx context.Context) *ServiceStatus {
	status := &ServiceStatus{CheckedAt: time.Now()}

	code, data, err := c.doJSON(ctx, http.MethodGet, statusPath, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Reachable = true
	if code != http.StatusOK {
		status.Error = fmt.Sprintf("status check returned %d", code)
		return status
	}

	var payload struct {
		Running          bool   `json:"running"`
		Version          string `json:"version"`
		LoadedModelCount int    `json:"loadedModelCount"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		status.Error = fmt.Sprintf("unparseable status payload: %v", err)
		return status
	}

	status.Running = payload.Running
	status.Version = payload.Version
	status.LoadedModelCount = payload.LoadedModelCount
	return status
}

// wireModel is one entry of the daemon's model catalog response.
type wireModel struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	Publisher        string `json:"publisher"`
	OwnedBy          string `json:"owned_by"`
	Version          string `json:"version"`
	State            string `json:"state"`
	Chat             *bool  `json:"chat"`
	Completion       *bool  `json:"completion"`
	Streaming        *bool  `json:"streaming"`
	Vision           bool   `json:"vision"`
	ToolCalling      bool   `json:"toolCalling"`
	MaxInputTokens   int    `json:"maxInputTokens"`
	MaxOutputTokens  int    `json:"maxOutputTokens"`
	MaxContextLength int    `json:"max_context_length"`
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func (w wireModel) toModel() Model {
	m := Model{
		ID:          w.ID,
		Name:        w.DisplayName,
		Description: w.Description,
		Publisher:   w.Publisher,
		Version:     w.Version,
		// Chat, completion and streaming are assumed capable unless the
		// daemon says otherwise; vision and tool calling the reverse.
		Chat:            boolOr(w.Chat, true),
		Completion:      boolOr(w.Completion, true),
		Streaming:       boolOr(w.Streaming, true),
		Vision:          w.Vision,
		ToolCalling:     w.ToolCalling,
		MaxInputTokens:  w.MaxInputTokens,
		MaxOutputTokens: w.MaxOutputTokens,
		IsLoaded:        w.State == "loaded",
	}
	if m.Name == "" {
		m.Name = w.ID
	}
	if m.Publisher == "" {
		m.Publisher = w.OwnedBy
	}
	if m.MaxInputTokens <= 0 {
		if w.MaxContextLength > 0 {
			m.MaxInputTokens = w.MaxContextLength
		} else {
			m.MaxInputTokens = DefaultMaxInputTokens
		}
	}
	if m.MaxOutputTokens <= 0 {
		m.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return m
}

// ListModels fetches the daemon's current catalog with loaded state.
func (c *DaemonClient) ListModels(ctx context.Context) ([]Model, error) {
	code, data, err := c.doJSON(ctx, http.MethodGet, modelsPath, nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("models request failed with status %d", code)
	}

	var payload struct {
		Data []wireModel `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ProtocolError{Path: modelsPath, Err: err}
	}
	if payload.Data == nil {
		return nil, &ProtocolError{Path: modelsPath, Err: errors.New("missing data field")}
	}

	models := make([]Model, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.ID == "" {
			return nil, &ProtocolError{Path: modelsPath, Err: errors.New("model entry without id")}
		}
		models = append(models, entry.toModel())
	}

	c.logger.Debugf("Daemon reported %d models", len(models))
	return models, nil
}

// LoadModel asks the daemon to load a model. A daemon-reported failure
// (non-2xx) returns false; transport failures return an error.
func (c *DaemonClient) LoadModel(ctx context.Context, id string) (bool, error) {
	return c.postModelAction(ctx, loadPath, id)
}

// UnloadModel asks the daemon to release a model's weights.
func (c *DaemonClient) UnloadModel(ctx context.Context, id string) (bool, error) {
	return c.postModelAction(ctx, unloadPath, id)
}

func (c *DaemonClient) postModelAction(ctx context.Context, path, id string) (bool, error) {
	code, _, err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"modelId": id})
	if err != nil {
		return false, err
	}
	if code < 200 || code > 299 {
		c.logger.Warnf("Daemon rejected %s for model %s with status %d", path, id, code)
		return false, nil
	}
	return true, nil
}

// CompleteChat performs a blocking chat completion.
func (c *DaemonClient) CompleteChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	r := *req
	r.Stream = false

	code, data, err := c.doJSON(ctx, http.MethodPost, chatPath, &r)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("chat request failed with status %d", code)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage TokenUsage `json:"usage"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ProtocolError{Path: chatPath, Err: err}
	}
	if len(payload.Choices) == 0 {
		return nil, &ProtocolError{Path: chatPath, Err: errors.New("response carried no choices")}
	}

	return &ChatResponse{
		Content:      payload.Choices[0].Message.Content,
		FinishReason: payload.Choices[0].FinishReason,
		Usage:        payload.Usage,
	}, nil
}

// StreamChat opens a streaming chat completion. Only the initial connection
// is covered by the retry loop; a failure mid-stream ends the returned
// sequence with an error instead of reconnecting.
func (c *DaemonClient) StreamChat(ctx context.Context, req *ChatRequest) (ChunkStream, error) {
	s, err := c.settings.Load()
	if err != nil {
		return nil, err
	}

	r := *req
	r.Stream = true

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt - 1)
			c.logger.Debugf("Retrying stream connect in %s (attempt %d/%d)", wait, attempt+1, s.MaxRetries+1)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		// The connect phase, up to response headers, is bounded by the
		// per-attempt timeout via a watchdog that cancels the attempt. The
		// body read loop outlives any single attempt, so once headers
		// arrive the watchdog is stopped and only the caller's context
		// governs the stream.
		attemptCtx, cancelAttempt := context.WithCancel(ctx)
		watchdog := time.AfterFunc(s.Timeout(), cancelAttempt)

		resp, err := c.makeRequest(attemptCtx, s, http.MethodPost, chatPath, &r, true)
		watchdog.Stop()
		if err != nil {
			cancelAttempt()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			cancelAttempt()
			return nil, fmt.Errorf("chat request failed with status %d", resp.StatusCode)
		}

		stream := newChatStream(resp.Body, c.logger)
		stream.cancel = cancelAttempt
		return stream, nil
	}

	return nil, &UnreachableError{Endpoint: s.BaseURL(), Err: lastErr}
}
