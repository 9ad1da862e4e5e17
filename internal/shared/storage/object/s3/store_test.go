package s3

import (
	"io"
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "cfdi/abc.xml", want: "cfdi/abc.xml"},
		{name: "simple prefix", prefix: "backoffice", key: "cfdi/abc.xml", want: "backoffice/cfdi/abc.xml"},
		{name: "prefix trailing slash", prefix: "backoffice/", key: "cfdi/abc.xml", want: "backoffice/cfdi/abc.xml"},
		{name: "prefix and key slashes", prefix: "/backoffice/", key: "/cfdi/abc.xml", want: "backoffice/cfdi/abc.xml"},
		{name: "nested prefix", prefix: "prod/docs", key: "cfdi/abc.pdf", want: "prod/docs/cfdi/abc.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("<cfdi/>")}
	if _, err := io.ReadAll(c); err != nil {
		t.Fatalf("read: %v", err)
	}
	if c.n != 7 {
		t.Fatalf("expected 7 bytes counted, got %d", c.n)
	}
}
