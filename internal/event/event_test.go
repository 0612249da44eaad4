package event

import (
	"context"
	"encoding/json"
	"testing"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/ws"

	"github.com/google/uuid"
)

type recorder struct {
	events []Event
}

func (r *recorder) Publish(_ context.Context, evt Event) {
	r.events = append(r.events, evt)
}

func product(stock, threshold int) *model.Product {
	p := &model.Product{Name: "Water", StockQuantity: stock, LowStockThreshold: threshold}
	p.ID = uuid.New()
	return p
}

func TestForProductAddsLowStockAtThreshold(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		threshold int
		wantTypes []string
	}{
		{"above threshold", 6, 5, []string{TypeStockUpdate}},
		{"at threshold", 5, 5, []string{TypeStockUpdate, TypeLowStock}},
		{"empty", 0, 5, []string{TypeStockUpdate, TypeLowStock}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := ForProduct(ActionMovement, product(tt.stock, tt.threshold), uuid.New(), nil, "moved")
			if len(events) != len(tt.wantTypes) {
				t.Fatalf("got %d events, want %d", len(events), len(tt.wantTypes))
			}
			for i, want := range tt.wantTypes {
				if events[i].Type != want {
					t.Errorf("event %d type = %s, want %s", i, events[i].Type, want)
				}
				if *events[i].NewStock != tt.stock {
					t.Errorf("event %d new_stock = %d, want %d", i, *events[i].NewStock, tt.stock)
				}
			}
		})
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	pub := Multi(a, b, Nop())
	pub.Publish(context.Background(), Event{Type: TypeSale})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both publishers to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

func TestHubPublisherQueuesJSON(t *testing.T) {
	hub := ws.NewHub()
	pub := NewHubPublisher(hub, nil)
	p := product(2, 5)

	for _, evt := range ForProduct(ActionSale, p, uuid.New(), nil, "sold") {
		pub.Publish(context.Background(), evt)
	}
	if len(hub.Broadcast) != 2 {
		t.Fatalf("expected 2 queued messages, got %d", len(hub.Broadcast))
	}

	var got Event
	if err := json.Unmarshal(<-hub.Broadcast, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeStockUpdate || got.ProductID == nil || *got.ProductID != p.ID {
		t.Errorf("unexpected first event: %+v", got)
	}
}

func TestKeyPrefersProduct(t *testing.T) {
	pid, sid := uuid.New(), uuid.New()
	if k := (Event{ProductID: &pid, SaleID: &sid}).Key(); k != pid.String() {
		t.Errorf("key = %s, want product id", k)
	}
	if k := (Event{SaleID: &sid}).Key(); k != sid.String() {
		t.Errorf("key = %s, want sale id", k)
	}
}
