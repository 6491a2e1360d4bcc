package core

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// PartKind discriminates the content types a host turn may carry.
type PartKind int

const (
	PartText PartKind = iota
	PartImage
	PartToolResult
)

// TurnPart is one piece of a host-native chat turn. Only text parts
// contribute to the daemon payload.
type TurnPart struct {
	Kind PartKind
	Text string
}

// Turn is one host-native transcript entry, possibly multi-part.
type Turn struct {
	Role  Role
	Parts []TurnPart
}

// TextTurn builds a single-part text turn.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []TurnPart{{Kind: PartText, Text: text}}}
}

// TurnSink receives the incremental output of one chat turn. Failures are
// delivered through the same sink as successful text, since chat output is
// best surfaced inline.
type TurnSink interface {
	WriteText(text string)
	WriteError(msg string)
}

// ConvertTurns flattens host turns into the daemon's ordered message list:
// one message per turn, text parts concatenated in order, non-text parts
// dropped.
func ConvertTurns(turns []Turn) []ChatMessage {
	messages := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		var b strings.Builder
		for _, p := range t.Parts {
			if p.Kind == PartText {
				b.WriteString(p.Text)
			}
		}
		messages = append(messages, ChatMessage{Role: t.Role, Content: b.String()})
	}
	return messages
}

// DisplayText renders a daemon message list back to display text,
// preserving the order and concatenation of all segments.
func DisplayText(messages []ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	return b.String()
}

// ChatRelay bridges one chat turn to a streamed completion.
type ChatRelay struct {
	registry  *ModelRegistry
	transport Transport
	logger    *Logger
}

// NewChatRelay creates a relay over the registry and transport
func NewChatRelay(registry *ModelRegistry, transport Transport, logger *Logger) *ChatRelay {
	return &ChatRelay{
		registry:  registry,
		transport: transport,
		logger:    logger,
	}
}

// HandleTurn resolves the active model, streams a completion for
// history+prompt and forwards each text fragment to the sink. Cancelling the
// context stops consumption cooperatively, once per received chunk, without
// reporting an error. All failures are written to the sink inline.
func (cr *ChatRelay) HandleTurn(ctx context.Context, history []Turn, prompt string, sink TurnSink) {
	model, ok := cr.registry.DefaultModel()
	if !ok || !model.IsLoaded {
		sink.WriteError("No usable model. Load a model in the local daemon and try again.")
		return
	}

	messages := append(ConvertTurns(history), ChatMessage{Role: RoleUser, Content: prompt})
	req := &ChatRequest{
		Model:     model.ID,
		Messages:  messages,
		Stream:    true,
		MaxTokens: model.MaxOutputTokens,
	}

	cr.logger.Debugf("Chat turn against %s, prompt is roughly %s", model.ID, FormatTokenCount(EstimateMessageTokens(messages)))

	stream, err := cr.transport.StreamChat(ctx, req)
	if err != nil {
		sink.WriteError(fmt.Sprintf("Chat request failed: %v", err))
		return
	}
	defer stream.Close()

	for {
		if ctx.Err() != nil {
			// Cancelled: abandon the stream without draining it.
			return
		}

		chunk, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			sink.WriteError(fmt.Sprintf("Chat stream failed: %v", err))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if chunk.Content != "" {
			sink.WriteText(chunk.Content)
		}
	}
}
