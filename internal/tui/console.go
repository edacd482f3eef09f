package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aristath/agentcrew/internal/events"
)

const separator = "--------------------------------------------------------------------------------"

// Printer writes conversation events to a terminal as they happen.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Run prints events from sub until it is closed or ctx is done.
func (p *Printer) Run(ctx context.Context, sub <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			p.Print(e)
		}
	}
}

// Print renders a single event.
func (p *Printer) Print(e events.Event) {
	switch e := e.(type) {
	case events.ConversationStartedEvent:
		fmt.Fprintf(p.out, "%s\n", StyleMeta.Render(fmt.Sprintf("conversation %s (%s): %s, up to %d messages",
			e.ID, e.Mode, strings.Join(e.Roles, " → "), e.MaxRound)))

	case events.SpeakerSelectedEvent:
		fmt.Fprintf(p.out, "\n%s\n", StyleMeta.Render("Next speaker: "+e.Speaker))

	case events.MessagePostedEvent:
		fmt.Fprintf(p.out, "%s (to chat_manager):\n\n%s\n\n%s\n",
			SpeakerStyle(e.Speaker).Render(e.Speaker), e.Content, StyleHelp.Render(separator))

	case events.CodeExecutedEvent:
		status := StyleStatusComplete.Render("succeeded")
		if e.ExitCode != 0 {
			status = StyleStatusFailed.Render(fmt.Sprintf("failed with exit code %d", e.ExitCode))
		}
		fmt.Fprintf(p.out, "%s %s\n", StyleBanner.Render(fmt.Sprintf(">>>>>>>> EXECUTED %d CODE BLOCK(S) in %v:", e.Blocks, e.Duration.Round(time.Millisecond))), status)

	case events.ConversationFinishedEvent:
		fmt.Fprintf(p.out, "%s\n", StyleStatusComplete.Render(fmt.Sprintf("Conversation ended (%s) after %d messages in %v",
			e.Reason, e.Messages, e.Duration.Round(time.Second))))

	case events.ConversationFailedEvent:
		fmt.Fprintf(p.out, "%s\n", StyleStatusFailed.Render(fmt.Sprintf("Conversation failed after %d messages: %v", e.Messages, e.Err)))
	}
}
