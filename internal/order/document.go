package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// Buyer identifies who the order is for.
type Buyer struct {
	ClientKey string `json:"nit"`
	Name      string `json:"nombre"`
}

// DocumentItem is one serialized order line.
type DocumentItem struct {
	Description  string        `json:"descripcion"`
	Code         string        `json:"codigo"`
	Quantity     int           `json:"cantidad"`
	UnitPrice    pricing.Money `json:"precio_unitario"`
	LineTotal    pricing.Money `json:"precio_total"`
	DeliveryDate string        `json:"fecha_entrega"`
}

// Document is the emitted order in its external wire shape. Prices and line
// totals are final at emission time.
type Document struct {
	OrderNumber  string         `json:"orden_compra"`
	DeliveryDate string         `json:"fecha_entrega"`
	Buyer        Buyer          `json:"comprador"`
	Items        []DocumentItem `json:"items"`
	BaseValue    pricing.Money  `json:"valor_base"`
	UniqueItems  int            `json:"total_items_unicos"`
	TotalUnits   int            `json:"numero_items_totales"`
	Notes        string         `json:"notas,omitempty"`
}

const fileIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BuildDocument assembles the order document and its export file name from
// finalized line items.
func BuildDocument(client catalog.Client, lines []LineItem, deliveryDate time.Time, notes string, now time.Time) (Document, string, error) {
	orderNumber, err := newOrderNumber()
	if err != nil {
		return Document{}, "", fmt.Errorf("generate order number: %w", err)
	}
	randomID, err := randomFileID(6)
	if err != nil {
		return Document{}, "", fmt.Errorf("generate file id: %w", err)
	}

	delivery := deliveryDate.Format("02/01/2006")
	items := make([]DocumentItem, 0, len(lines))
	summary := make([]pricing.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, DocumentItem{
			Description:  line.Name,
			Code:         line.Ref,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.LineTotal,
			DeliveryDate: delivery,
		})
		summary = append(summary, pricing.Item{Qty: line.Quantity, UnitPrice: line.UnitPrice})
	}
	totals := pricing.Compute(summary)

	doc := Document{
		OrderNumber:  orderNumber,
		DeliveryDate: delivery,
		Buyer:        Buyer{ClientKey: client.Key, Name: client.Name},
		Items:        items,
		BaseValue:    totals.TotalValue,
		UniqueItems:  totals.UniqueItems,
		TotalUnits:   totals.TotalUnits,
		Notes:        notes,
	}

	fileName := fmt.Sprintf("%s%sR%s-%s-%04d-%05d.json",
		orderNumber,
		now.UTC().Format("20060102T150405"),
		randomID,
		digitsOnly(client.Key),
		totals.UniqueItems,
		totals.TotalUnits,
	)
	return doc, fileName, nil
}

// newOrderNumber returns a ten-digit decimal order identifier.
func newOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9_000_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1_000_000_000), nil
}

func randomFileID(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(fileIDCharset))))
		if err != nil {
			return "", err
		}
		b.WriteByte(fileIDCharset[n.Int64()])
	}
	return b.String(), nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
