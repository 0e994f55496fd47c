package llm_test

import (
	"testing"

	"podforge/internal/llm"
)

type payload struct {
	Title string `json:"title"`
}

func TestDecodeJSONDirect(t *testing.T) {
	var out payload
	if err := llm.DecodeJSON(`{"title":"Episode"}`, &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.Title != "Episode" {
		t.Fatalf("title %q", out.Title)
	}
}

func TestDecodeJSONStripsCodeFence(t *testing.T) {
	content := "```json\n{\"title\":\"Fenced\"}\n```"
	var out payload
	if err := llm.DecodeJSON(content, &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.Title != "Fenced" {
		t.Fatalf("title %q", out.Title)
	}
}

func TestDecodeJSONExtractsEmbeddedObject(t *testing.T) {
	content := `Here is the result you asked for: {"title":"Embedded"} hope it helps!`
	var out payload
	if err := llm.DecodeJSON(content, &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.Title != "Embedded" {
		t.Fatalf("title %q", out.Title)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var out payload
	if err := llm.DecodeJSON("not json at all", &out); err == nil {
		t.Fatal("expected decode error")
	}
	if err := llm.DecodeJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
