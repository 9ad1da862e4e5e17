package cfdi

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

func TestBasicGeneratorRendersSnapshot(t *testing.T) {
	snap := Snapshot{
		UUID:     "0b6f4c1e-1d2a-4c55-9a3e-2f0d9c7b8a61",
		QuoteID:  "q-1",
		Customer: "ACME & Sons",
		Total:    1200,
		Items:    []Item{{Description: "Cotizacion q-1", Quantity: 1, UnitPrice: 1200}},
		IssuedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	xmlDoc, pdfDoc, err := BasicGenerator{}.Generate(context.Background(), snap)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var parsed xmlDocument
	if err := xml.Unmarshal(xmlDoc, &parsed); err != nil {
		t.Fatalf("xml not well formed: %v", err)
	}
	if parsed.UUID != snap.UUID || parsed.Customer != "ACME & Sons" || parsed.Total != "1200.00" {
		t.Fatalf("unexpected header: %+v", parsed)
	}
	if parsed.Fecha != "2024-03-01T12:00:00Z" {
		t.Fatalf("expected UTC fecha, got %s", parsed.Fecha)
	}
	if len(parsed.Items) != 1 || parsed.Items[0].Amount != "1200.00" {
		t.Fatalf("unexpected items: %+v", parsed.Items)
	}

	text := string(pdfDoc)
	if !strings.Contains(text, "Cliente: ACME & Sons") || !strings.Contains(text, "Total: 1200.00") {
		t.Fatalf("unexpected pdf body: %q", text)
	}
}

func TestBasicGeneratorHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := (BasicGenerator{}).Generate(ctx, Snapshot{UUID: "x"}); err == nil {
		t.Fatalf("expected context error")
	}
}
