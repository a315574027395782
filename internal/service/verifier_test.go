package service

import (
	"context"
	"errors"
	"testing"
)

func TestVerifier_ParsesPlainJSON(t *testing.T) {
	mock := &scriptedLLM{responses: []string{
		`{"relevance": 9, "accuracy": 8, "completeness": 7, "citation": 8, "overall": 8.0, "issues": [], "confidence": "high"}`,
	}}
	v := NewVerifier(mock)

	result := v.Verify(context.Background(), "q", "a", "ctx")
	if result.Overall != 8.0 || result.Confidence != "high" {
		t.Errorf("unexpected verification: %+v", result)
	}
	if result.Relevance != 9 || result.Citation != 8 {
		t.Errorf("criterion scores not parsed: %+v", result)
	}
}

func TestVerifier_StripsCodeFences(t *testing.T) {
	mock := &scriptedLLM{responses: []string{
		"Here is my assessment:\n```json\n{\"overall\": 6.5, \"issues\": [\"missing citation\"], \"confidence\": \"low\"}\n```",
	}}
	v := NewVerifier(mock)

	result := v.Verify(context.Background(), "q", "a", "ctx")
	if result.Overall != 6.5 || result.Confidence != "low" {
		t.Errorf("fenced JSON not parsed: %+v", result)
	}
	if len(result.Issues) != 1 || result.Issues[0] != "missing citation" {
		t.Errorf("issues not parsed: %v", result.Issues)
	}
}

func TestVerifier_NeutralDefaultOnParseFailure(t *testing.T) {
	mock := &scriptedLLM{responses: []string{"I think the answer is quite good overall."}}
	v := NewVerifier(mock)

	result := v.Verify(context.Background(), "q", "a", "ctx")
	if result.Overall != 7.0 || result.Confidence != "medium" {
		t.Errorf("expected neutral default, got %+v", result)
	}
	if result.Issues == nil || len(result.Issues) != 0 {
		t.Errorf("expected empty issues slice, got %v", result.Issues)
	}
}

func TestVerifier_NeutralDefaultOnCallFailure(t *testing.T) {
	mock := &scriptedLLM{err: errors.New("llm down")}
	v := NewVerifier(mock)

	result := v.Verify(context.Background(), "q", "a", "ctx")
	if result.Overall != 7.0 || result.Confidence != "medium" {
		t.Errorf("expected neutral default, got %+v", result)
	}
}
