package core

import (
	"context"
	"time"
)

// Conservative fallbacks applied when the daemon omits token limits.
const (
	DefaultMaxInputTokens  = 4096
	DefaultMaxOutputTokens = 2048
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Model represents one inference-capable model known to the daemon. The
// registry owns the canonical copy; everything handed out is a value copy.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Version     string `json:"version,omitempty"`

	// Capability flags. Chat, completion and streaming default to true when
	// the daemon omits them; vision and tool calling default to false.
	Chat        bool `json:"chat"`
	Completion  bool `json:"completion"`
	Streaming   bool `json:"streaming"`
	Vision      bool `json:"vision"`
	ToolCalling bool `json:"tool_calling"`

	MaxInputTokens  int `json:"max_input_tokens"`
	MaxOutputTokens int `json:"max_output_tokens"`

	// IsLoaded tracks whether the daemon has weights resident. IsDefault is
	// registry-local state; the daemon has no concept of a default model.
	IsLoaded  bool `json:"is_loaded"`
	IsDefault bool `json:"is_default"`
}

// ChatMessage is one entry in a strictly ordered transcript sent to the
// daemon.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ServiceStatus is a transient snapshot of daemon health. Never persisted.
type ServiceStatus struct {
	Reachable        bool      `json:"reachable"`
	Running          bool      `json:"running"`
	LoadedModelCount int       `json:"loaded_model_count"`
	Version          string    `json:"version,omitempty"`
	CheckedAt        time.Time `json:"checked_at"`
	Error            string    `json:"error,omitempty"`
}

// ChatRequest is the daemon-facing completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// TokenUsage reports token counts for a completed request, when the daemon
// supplies them.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is a parsed blocking completion.
type ChatResponse struct {
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        TokenUsage `json:"usage"`
}

// ChatChunk is one incremental fragment of a streamed completion.
type ChatChunk struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ChunkStream is a finite, non-restartable, pull-driven sequence of chat
// chunks. Recv returns io.EOF after the daemon's end-of-stream marker or
// when the connection closes cleanly; any other error is fatal to the
// stream.
type ChunkStream interface {
	Recv() (*ChatChunk, error)
	Close() error
}

// Transport is the network surface the registry and relay depend on. The
// concrete implementation is DaemonClient; tests substitute fakes.
type Transport interface {
	CheckStatus(ctx context.Context) *ServiceStatus
	ListModels(ctx context.Context) ([]Model, error)
	LoadModel(ctx context.Context, id string) (bool, error)
	UnloadModel(ctx context.Context, id string) (bool, error)
	CompleteChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	StreamChat(ctx context.Context, req *ChatRequest) (ChunkStream, error)
}
