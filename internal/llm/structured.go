package llm

import (
	"context"
	"errors"
	"strings"
)

// CompleteJSON appends contract to the final user message and asks the
// backend for strict JSON. The raw text is returned; decoding is the caller's
// concern.
func CompleteJSON(ctx context.Context, p Provider, req Request, contract string) (string, error) {
	msgs := make([]Message, len(req.Messages))
	copy(msgs, req.Messages)
	if contract != "" {
		last := -1
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == RoleUser {
				last = i
				break
			}
		}
		if last < 0 {
			msgs = append(msgs, Message{Role: RoleUser, Content: contract})
		} else {
			msgs[last].Content = strings.TrimRight(msgs[last].Content, "\n") + "\n\n" + contract
		}
	}
	req.Messages = msgs
	req.JSON = true
	return p.Complete(ctx, req)
}

// Ping issues a trivial completion to check that the backend is reachable and
// the credential is accepted.
func Ping(ctx context.Context, p Provider) (string, error) {
	out, err := p.Complete(ctx, Request{
		Messages:    []Message{{Role: RoleUser, Content: "Reply with the single word: pong"}},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty reply from backend")
	}
	return out, nil
}
