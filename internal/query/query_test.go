package query

import (
	"context"
	"errors"
	"testing"

	"github.com/impacttracker/esgrag/internal/llm"
)

// fakeLLM returns a canned response or error and records the last call.
type fakeLLM struct {
	response string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ llm.ChatOptions) (string, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestClassify_ValidType(t *testing.T) {
	tests := []struct {
		response string
		want     QuestionType
	}{
		{"definition", TypeDefinition},
		{"  How_To \n", TypeHowTo},
		{"CASE_STUDY", TypeCaseStudy},
		{"comparison", TypeComparison},
		{"trend", TypeTrend},
		{"data_inquiry", TypeDataInquiry},
	}

	for _, tt := range tests {
		p := New(&fakeLLM{response: tt.response})
		if got := p.Classify(context.Background(), "some question"); got != tt.want {
			t.Errorf("Classify with response %q = %q, want %q", tt.response, got, tt.want)
		}
	}
}

func TestClassify_OutOfSetFallsBack(t *testing.T) {
	p := New(&fakeLLM{response: "philosophy"})
	if got := p.Classify(context.Background(), "q"); got != TypeDataInquiry {
		t.Errorf("out-of-set answer: got %q, want data_inquiry", got)
	}
}

func TestClassify_ErrorFallsBack(t *testing.T) {
	p := New(&fakeLLM{err: errors.New("llm down")})
	if got := p.Classify(context.Background(), "q"); got != TypeDataInquiry {
		t.Errorf("classification error: got %q, want data_inquiry", got)
	}
}

func TestExpand_LongQueryUnchanged(t *testing.T) {
	f := &fakeLLM{response: "should not be used"}
	p := New(f)

	input := "a sufficiently long example query"
	if got := p.Expand(context.Background(), input); got != input {
		t.Errorf("long query changed: got %q", got)
	}
	if f.calls != 0 {
		t.Errorf("expansion invoked for long query: %d calls", f.calls)
	}
}

func TestExpand_ShortQueryExpanded(t *testing.T) {
	f := &fakeLLM{response: "how does the company manage its carbon emissions?"}
	p := New(f)

	got := p.Expand(context.Background(), "short")
	if f.calls != 1 {
		t.Fatalf("expected 1 LLM call, got %d", f.calls)
	}
	if got != f.response {
		t.Errorf("got %q, want expanded response", got)
	}
}

func TestExpand_RuneLengthThreshold(t *testing.T) {
	// 6 runes but 16 bytes: length must be counted in runes, so this is
	// below the threshold and triggers expansion.
	f := &fakeLLM{response: "expanded"}
	p := New(f)

	p.Expand(context.Background(), "탄소배출량?")
	if f.calls != 1 {
		t.Errorf("multibyte short query did not trigger expansion")
	}

	// 11 runes: just over the default threshold of 10.
	f2 := &fakeLLM{response: "expanded"}
	p2 := New(f2)
	input := "질문이조금더길어요지요"
	if got := p2.Expand(context.Background(), input); got != input {
		t.Errorf("11-rune query was expanded")
	}
}

func TestExpand_FailOpen(t *testing.T) {
	p := New(&fakeLLM{err: errors.New("llm down")})
	if got := p.Expand(context.Background(), "짧은 질문"); got != "짧은 질문" {
		t.Errorf("expansion failure must return original query, got %q", got)
	}

	p2 := New(&fakeLLM{response: "   "})
	if got := p2.Expand(context.Background(), "짧은 질문"); got != "짧은 질문" {
		t.Errorf("blank expansion must return original query, got %q", got)
	}
}

func TestExtractFilters_Section(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"환경 전략이 궁금해요", "Environment"},
		{"What are the ENVIRONMENT targets?", "Environment"},
		{"직원 안전 관리", "Social"},
		{"윤리경영과 준법", "Governance"},
		{"탄소배출량은?", "Environment"},
		{"no keywords here", ""},
	}

	for _, tt := range tests {
		got := ExtractFilters(tt.query)
		if got.Section != tt.want {
			t.Errorf("ExtractFilters(%q).Section = %q, want %q", tt.query, got.Section, tt.want)
		}
	}
}

func TestExtractFilters_Company(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"삼성의 재생에너지 사용률", "SAMSUNG"},
		{"posco emission targets", "POSCO"},
		{"KT&G 보고서", "KTNG"},
		{"neither", ""},
	}

	for _, tt := range tests {
		got := ExtractFilters(tt.query)
		if got.Source != tt.want {
			t.Errorf("ExtractFilters(%q).Source = %q, want %q", tt.query, got.Source, tt.want)
		}
	}
}

func TestExtractFilters_FirstMatchWins(t *testing.T) {
	// POSCO appears first in the query text, but CJ comes first in the
	// table, so CJ wins: matching is table-ordered, not position-ordered.
	got := ExtractFilters("포스코와 CJ의 비교")
	if got.Source != "CJ" {
		t.Errorf("got source %q, want CJ (table order wins)", got.Source)
	}

	// Only one section survives even when several match.
	got = ExtractFilters("환경과 사회와 지배구조")
	if got.Section != "Environment" {
		t.Errorf("got section %q, want Environment", got.Section)
	}
}

func TestExtractFilters_CaseInsensitiveAndUnicodeSafe(t *testing.T) {
	got := ExtractFilters("SaMsUnG ESG 報告書 🌱 émissions")
	if got.Source != "SAMSUNG" {
		t.Errorf("mixed-case match failed: %q", got.Source)
	}

	// Must not panic on arbitrary unicode.
	_ = ExtractFilters("𝔘𝔫𝔦𝔠𝔬𝔡𝔢 � \x00")
}

func TestExtractFilters_BothFields(t *testing.T) {
	got := ExtractFilters("현대의 환경 정책")
	if got.Section != "Environment" || got.Source != "HYUNDAI" {
		t.Errorf("got %+v, want Environment/HYUNDAI", got)
	}
	if got.IsEmpty() {
		t.Error("filter with both fields reported empty")
	}

	if !ExtractFilters("nothing relevant").IsEmpty() {
		t.Error("no-match filter not empty")
	}
}
