package core

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/pierceboggan/byok-foundry-local/config"
)

// newTestLogger routes log output to a throwaway file.
func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := NewLogger("error", filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return logger
}

func testSettings() config.Settings {
	return config.Settings{
		Endpoint:   "http://localhost",
		Port:       5273,
		TimeoutMS:  1000,
		MaxRetries: 0,
		LogLevel:   "error",
	}
}

// fakeStore satisfies SettingsStore with canned settings.
type fakeStore struct {
	settings     config.Settings
	savedDefault string
	saveErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: testSettings()}
}

func (f *fakeStore) Load() (config.Settings, error) {
	return f.settings, nil
}

func (f *fakeStore) SaveDefaultModel(id string) error {
	f.savedDefault = id
	return f.saveErr
}

// fakeTransport satisfies Transport with per-operation function hooks.
type fakeTransport struct {
	checkStatusFn func(ctx context.Context) *ServiceStatus
	listModelsFn  func(ctx context.Context) ([]Model, error)
	loadModelFn   func(ctx context.Context, id string) (bool, error)
	unloadModelFn func(ctx context.Context, id string) (bool, error)
	completeFn    func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	streamFn      func(ctx context.Context, req *ChatRequest) (ChunkStream, error)
}

func (f *fakeTransport) CheckStatus(ctx context.Context) *ServiceStatus {
	if f.checkStatusFn != nil {
		return f.checkStatusFn(ctx)
	}
	return &ServiceStatus{Reachable: true, Running: true}
}

func (f *fakeTransport) ListModels(ctx context.Context) ([]Model, error) {
	if f.listModelsFn != nil {
		return f.listModelsFn(ctx)
	}
	return nil, nil
}

func (f *fakeTransport) LoadModel(ctx context.Context, id string) (bool, error) {
	if f.loadModelFn != nil {
		return f.loadModelFn(ctx, id)
	}
	return true, nil
}

func (f *fakeTransport) UnloadModel(ctx context.Context, id string) (bool, error) {
	if f.unloadModelFn != nil {
		return f.unloadModelFn(ctx, id)
	}
	return true, nil
}

func (f *fakeTransport) CompleteChat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if f.completeFn != nil {
		return f.completeFn(ctx, req)
	}
	return &ChatResponse{}, nil
}

func (f *fakeTransport) StreamChat(ctx context.Context, req *ChatRequest) (ChunkStream, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx, req)
	}
	return &fakeStream{}, nil
}

// fakeStream yields a fixed chunk sequence, then io.EOF or a terminal error.
type fakeStream struct {
	chunks   []ChatChunk
	finalErr error
	pos      int
	closed   bool
}

func (s *fakeStream) Recv() (*ChatChunk, error) {
	if s.pos >= len(s.chunks) {
		if s.finalErr != nil {
			return nil, s.finalErr
		}
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return &chunk, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// recordingSink collects everything a chat turn produces.
type recordingSink struct {
	texts  []string
	errors []string
	onText func(n int)
}

func (s *recordingSink) WriteText(text string) {
	s.texts = append(s.texts, text)
	if s.onText != nil {
		s.onText(len(s.texts))
	}
}

func (s *recordingSink) WriteError(msg string) {
	s.errors = append(s.errors, msg)
}
