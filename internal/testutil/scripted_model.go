package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/model"
)

// ErrScriptExhausted is returned once every scripted reply has been used.
var ErrScriptExhausted = errors.New("scripted model has no replies left")

// ScriptedModel replays replies in order and records each request.
type ScriptedModel struct {
	mu       sync.Mutex
	name     string
	replies  []string
	err      error
	requests []model.Request
}

// NewScriptedModel creates a model answering with replies, one per call.
func NewScriptedModel(name string, replies ...string) *ScriptedModel {
	return &ScriptedModel{name: name, replies: replies}
}

// FailWith makes every subsequent call fail with err.
func (s *ScriptedModel) FailWith(err error) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Generate implements model.Model.
func (s *ScriptedModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	defer close(respCh)
	defer close(errCh)

	s.mu.Lock()
	defer s.mu.Unlock()

	contents := make([]core.Content, len(req.Contents))
	for i, c := range req.Contents {
		contents[i] = c.Clone()
	}
	req.Contents = contents
	s.requests = append(s.requests, req)

	switch {
	case s.err != nil:
		errCh <- s.err
	case len(s.replies) == 0:
		errCh <- fmt.Errorf("%s: %w", s.name, ErrScriptExhausted)
	default:
		reply := s.replies[0]
		s.replies = s.replies[1:]
		respCh <- model.Response{
			Content:      core.NewTextContent(core.RoleAssistant, reply),
			FinishReason: "stop",
		}
	}
	return respCh, errCh
}

// Info implements model.Model.
func (s *ScriptedModel) Info() model.Info {
	return model.Info{Name: s.name, Provider: "scripted"}
}

// Requests returns every recorded request.
func (s *ScriptedModel) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of Generate calls.
func (s *ScriptedModel) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastPrompt returns the text of the newest entry of the last request.
func (s *ScriptedModel) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ""
	}
	contents := s.requests[len(s.requests)-1].Contents
	if len(contents) == 0 {
		return ""
	}
	return contents[len(contents)-1].Text()
}
