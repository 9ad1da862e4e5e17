package cfdi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"backoffice/internal/shared/storage/object"
)

//go:generate mockgen -source=generator.go -destination=mocks/mock_generator.go -package=mocks

// Generator renders document bytes for a snapshot.
type Generator interface {
	Generate(ctx context.Context, snap Snapshot) (xmlDoc []byte, pdfDoc []byte, err error)
}

// Storage persists rendered files and hands back a retrievable URL.
type Storage interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// BasicGenerator emits a minimal CFDI-shaped XML and a plain text rendition
// served as the PDF file.
type BasicGenerator struct{}

type xmlDocument struct {
	XMLName  xml.Name  `xml:"cfdi"`
	UUID     string    `xml:"uuid,attr"`
	Customer string    `xml:"customer,attr"`
	Total    string    `xml:"total,attr"`
	Fecha    string    `xml:"fecha,attr"`
	Items    []xmlItem `xml:"item"`
}

type xmlItem struct {
	Description string `xml:"description,attr"`
	Quantity    string `xml:"quantity,attr"`
	UnitPrice   string `xml:"unit_price,attr"`
	Amount      string `xml:"amount,attr"`
}

func (BasicGenerator) Generate(ctx context.Context, snap Snapshot) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	doc := xmlDocument{
		UUID:     snap.UUID,
		Customer: snap.Customer,
		Total:    money(snap.Total),
		Fecha:    snap.IssuedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range snap.Items {
		doc.Items = append(doc.Items, xmlItem{
			Description: it.Description,
			Quantity:    strconv.FormatFloat(it.Quantity, 'f', -1, 64),
			UnitPrice:   money(it.UnitPrice),
			Amount:      money(it.Amount()),
		})
	}

	var xmlBuf bytes.Buffer
	xmlBuf.WriteString(xml.Header)
	enc := xml.NewEncoder(&xmlBuf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, nil, fmt.Errorf("encode xml: %w", err)
	}

	var pdfBuf bytes.Buffer
	fmt.Fprintf(&pdfBuf, "CFDI %s\n", snap.UUID)
	fmt.Fprintf(&pdfBuf, "Cliente: %s\n", snap.Customer)
	for _, it := range snap.Items {
		fmt.Fprintf(&pdfBuf, "  %s x%s @ %s = %s\n", it.Description,
			strconv.FormatFloat(it.Quantity, 'f', -1, 64), money(it.UnitPrice), money(it.Amount()))
	}
	fmt.Fprintf(&pdfBuf, "Total: %s\n", money(snap.Total))

	return xmlBuf.Bytes(), pdfBuf.Bytes(), nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ObjectStorage adapts an ObjectStore to Storage.
type ObjectStorage struct {
	Objects object.ObjectStore
}

func (s ObjectStorage) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := s.Objects.Put(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return s.Objects.URL(ctx, key)
}

func (s ObjectStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.Objects.Open(ctx, key)
}

var (
	_ Generator = BasicGenerator{}
	_ Storage   = ObjectStorage{}
)
