package order

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
)

func TestBuildDocumentWireShape(t *testing.T) {
	client := catalog.Client{Key: "900123456-7", Name: "Empresa Demo SAS"}
	lines := []LineItem{
		{Ref: "REF001", Name: "Producto Uno", Quantity: 11, UnitPrice: 22000, LineTotal: 242000},
		{Ref: "REF002", Name: "Producto Dos", Quantity: 2, UnitPrice: 35000, LineTotal: 70000},
	}
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	delivery := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	doc, _, err := BuildDocument(client, lines, delivery, "", now)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"orden_compra", "fecha_entrega", "comprador", "items", "valor_base", "total_items_unicos", "numero_items_totales"} {
		if _, ok := wire[key]; !ok {
			t.Fatalf("wire document missing %q: %s", key, raw)
		}
	}
	if _, ok := wire["notas"]; ok {
		t.Fatalf("empty notes should be omitted: %s", raw)
	}
	if wire["fecha_entrega"] != "20/03/2024" {
		t.Fatalf("fecha_entrega=%v, want 20/03/2024", wire["fecha_entrega"])
	}

	buyer := wire["comprador"].(map[string]any)
	if buyer["nit"] != "900123456-7" || buyer["nombre"] != "Empresa Demo SAS" {
		t.Fatalf("comprador=%v", buyer)
	}

	items := wire["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("len(items)=%d, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["codigo"] != "REF001" || first["descripcion"] != "Producto Uno" {
		t.Fatalf("first item=%v", first)
	}
	if first["fecha_entrega"] != "20/03/2024" {
		t.Fatalf("item fecha_entrega=%v", first["fecha_entrega"])
	}

	if doc.BaseValue != 312000 || doc.UniqueItems != 2 || doc.TotalUnits != 13 {
		t.Fatalf("totals base=%d unique=%d units=%d", doc.BaseValue, doc.UniqueItems, doc.TotalUnits)
	}
}

func TestBuildDocumentFileName(t *testing.T) {
	client := catalog.Client{Key: "900123456-7", Name: "Empresa Demo SAS"}
	lines := []LineItem{
		{Ref: "REF001", Name: "Producto Uno", Quantity: 3, UnitPrice: 25000, LineTotal: 75000},
	}
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	_, fileName, err := BuildDocument(client, lines, now, "", now)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	pattern := regexp.MustCompile(`^\d{10}20240315T103000R[A-Z0-9]{6}-9001234567-0001-00003\.json$`)
	if !pattern.MatchString(fileName) {
		t.Fatalf("file name %q does not match %s", fileName, pattern)
	}
}

func TestBuildDocumentOrderNumbersVary(t *testing.T) {
	client := catalog.Client{Key: "900123456-7", Name: "Empresa Demo SAS"}
	lines := []LineItem{{Ref: "REF001", Name: "P", Quantity: 1, UnitPrice: 25000, LineTotal: 25000}}
	now := time.Now()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		doc, _, err := BuildDocument(client, lines, now, "", now)
		if err != nil {
			t.Fatalf("BuildDocument: %v", err)
		}
		if len(doc.OrderNumber) != 10 {
			t.Fatalf("order number %q is not ten digits", doc.OrderNumber)
		}
		seen[doc.OrderNumber] = true
	}
	if len(seen) < 2 {
		t.Fatal("order numbers never vary")
	}
}
