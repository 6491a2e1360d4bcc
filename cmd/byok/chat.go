package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/pierceboggan/byok-foundry-local/core"
)

// terminalSink streams chat output to the terminal, soft-wrapping at the
// terminal width. Errors arrive inline, styled, on their own line.
type terminalSink struct {
	out   io.Writer
	width int
	col   int
}

func newTerminalSink(out io.Writer) *terminalSink {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return &terminalSink{out: out, width: width}
}

func (s *terminalSink) WriteText(text string) {
	for _, r := range text {
		if r == '\n' {
			fmt.Fprint(s.out, "\n")
			s.col = 0
			continue
		}
		// Wrap at the first space past the width so words stay whole.
		if s.col >= s.width-1 && r == ' ' {
			fmt.Fprint(s.out, "\n")
			s.col = 0
			continue
		}
		fmt.Fprint(s.out, string(r))
		s.col++
	}
}

func (s *terminalSink) WriteError(msg string) {
	if s.col > 0 {
		fmt.Fprint(s.out, "\n")
		s.col = 0
	}
	fmt.Fprintln(s.out, errorStyle.Render(msg))
}

func runChat(ctx context.Context, service *core.BridgeService, prompt string) error {
	if prompt == "" {
		return fmt.Errorf("chat needs a prompt, e.g. `byok chat \"why is the sky blue\"`")
	}

	if _, err := service.Registry().Refresh(ctx, false); err != nil {
		return err
	}

	sink := newTerminalSink(os.Stdout)
	service.Relay().HandleTurn(ctx, nil, prompt, sink)

	if sink.col > 0 {
		fmt.Println()
	}
	if ctx.Err() != nil {
		fmt.Println(faintStyle.Render("(interrupted)"))
	}
	return nil
}
