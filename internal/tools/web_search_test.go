package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/voicebridge/gateway/pkg/commons"
)

func TestCleanHTML_StripsTagsAndEntities(t *testing.T) {
	got := cleanHTML("<b>Hello</b>&nbsp;world&#x2014;done")
	if got != "Helloworlddone" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateSnippet_RespectsMaxLen(t *testing.T) {
	long := strings.Repeat("a", snippetMaxLen+50)
	got := truncateSnippet(long)
	if len(got) != snippetMaxLen {
		t.Fatalf("expected length %d, got %d", snippetMaxLen, len(got))
	}
}

func TestWebSearchTool_EmptyQueryIsRejectedWithoutNetworkCall(t *testing.T) {
	tool := NewWebSearchTool("", "", commons.NewNop())
	got, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "no search query provided") {
		t.Fatalf("got %q", got)
	}
}
