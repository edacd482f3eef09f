package orchestrator

import (
	"context"
)

// humanRequest is a prompt waiting for the operator's reply.
type humanRequest struct {
	prompt  string
	replyCh chan humanReply
}

type humanReply struct {
	text string
	err  error
}

// AnswerFunc obtains one reply from the operator, for example through a terminal form.
type AnswerFunc func(ctx context.Context, prompt string) (string, error)

// HumanChannel serializes human input requests onto a single handler
// goroutine so that only one prompt is shown at a time. It satisfies
// chat.HumanInput.
type HumanChannel struct {
	requests chan humanRequest
	answerFn AnswerFunc
	done     chan struct{}
}

// NewHumanChannel creates a channel that answers prompts with answerFn.
func NewHumanChannel(answerFn AnswerFunc) *HumanChannel {
	return &HumanChannel{
		requests: make(chan humanRequest, 1),
		answerFn: answerFn,
		done:     make(chan struct{}),
	}
}

// Start launches the handler goroutine. It runs until ctx is cancelled.
func (h *HumanChannel) Start(ctx context.Context) {
	go h.handle(ctx)
}

func (h *HumanChannel) handle(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.requests:
			text, err := h.answerFn(ctx, req.prompt)

			select {
			case <-ctx.Done():
				req.replyCh <- humanReply{err: ctx.Err()}
				return
			default:
				req.replyCh <- humanReply{text: text, err: err}
			}
		}
	}
}

// Ask shows prompt to the operator and waits for the reply.
func (h *HumanChannel) Ask(ctx context.Context, prompt string) (string, error) {
	replyCh := make(chan humanReply, 1)

	select {
	case h.requests <- humanRequest{prompt: prompt, replyCh: replyCh}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			return "", reply.err
		}
		return reply.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop blocks until the handler goroutine has exited.
func (h *HumanChannel) Stop() {
	<-h.done
}
