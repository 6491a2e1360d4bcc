package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

var (
	ssePrefix    = []byte("data: ")
	sseDone      = []byte("[DONE]")
	sseKeepAlive = []byte(":")
)

// wireChunk is one server-sent completion fragment.
type wireChunk struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatStream reads incremental completion fragments off a live response
// body. It is finite and non-restartable: once Recv returns io.EOF or an
// error, the stream is spent. Consumption is pull-driven; abandoning the
// stream just requires Close.
type ChatStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	logger *Logger

	// cancel releases the request context the stream was opened under.
	cancel func()

	closeOnce sync.Once
	done      bool
}

func newChatStream(body io.ReadCloser, logger *Logger) *ChatStream {
	return &ChatStream{
		body:   body,
		reader: bufio.NewReader(body),
		logger: logger,
	}
}

// Recv returns the next chunk. io.EOF marks a clean end of stream (the
// daemon's [DONE] sentinel or connection close); any other error is a
// connection-level failure. Individual malformed fragments are skipped and
// logged rather than ending the stream.
func (s *ChatStream) Recv() (*ChatChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			s.finish()
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("stream read failed: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, sseKeepAlive) {
			continue
		}
		if !bytes.HasPrefix(line, ssePrefix) {
			continue
		}

		payload := bytes.TrimPrefix(line, ssePrefix)
		if bytes.Equal(payload, sseDone) {
			s.finish()
			return nil, io.EOF
		}

		var chunk wireChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			s.logger.Warnf("Skipping malformed stream fragment: %v", err)
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" || choice.FinishReason != "" {
				return &ChatChunk{
					Content:      choice.Delta.Content,
					FinishReason: choice.FinishReason,
				}, nil
			}
		}
		// Fragment carried nothing renderable (e.g. a bare role delta);
		// keep reading.
	}
}

func (s *ChatStream) finish() {
	s.done = true
	s.Close()
}

// Close releases the underlying connection. Safe to call more than once.
func (s *ChatStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
		if s.cancel != nil {
			s.cancel()
		}
	})
	return err
}
