package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestSequenceNamespaceFormat(t *testing.T) {
	if got := SequenceOrder.Format(42); got != "ORD-000042" {
		t.Fatalf("unexpected order number %q", got)
	}
	if got := SequenceSeller.Format(7); got != "000007" {
		t.Fatalf("unexpected seller number %q", got)
	}
	if got := SequenceProduct.Format(1234567); got != "1234567" {
		t.Fatalf("expected wide values to keep all digits, got %q", got)
	}
}

func TestParsers(t *testing.T) {
	if status, err := ParseProductStatus(" blocked "); err != nil || status != ProductStatusBlocked {
		t.Fatalf("expected BLOCKED, got %q (%v)", status, err)
	}
	if _, err := ParseProductStatus("deleted"); err == nil {
		t.Fatal("expected unknown product status to fail")
	}
	if status, err := ParseOrderStatus("shipped"); err != nil || status != OrderStatusShipped {
		t.Fatalf("expected SHIPPED, got %q (%v)", status, err)
	}
	if _, err := ParseSequenceNamespace("invoice"); err == nil {
		t.Fatal("expected unknown namespace to fail")
	}
	if ns, err := ParseSequenceNamespace("ORDER"); err != nil || ns != SequenceOrder {
		t.Fatalf("expected ORDER namespace, got %q (%v)", ns, err)
	}
	if !ProductStatusActive.IsPurchasable() || ProductStatusInactive.IsPurchasable() {
		t.Fatal("only ACTIVE products are purchasable")
	}
}

func TestCurrencyAndOutboxTypes(t *testing.T) {
	if c, err := ParseCurrency(" eur "); err != nil || c != CurrencyEUR {
		t.Fatalf("expected EUR, got %q (%v)", c, err)
	}
	if _, err := ParseCurrency("JPY"); err == nil {
		t.Fatal("expected unsupported currency to fail")
	}
	if CurrencyGBP.Symbol() != "£" || Currency("CHF").Symbol() != "CHF" {
		t.Fatal("unexpected currency symbols")
	}
	if agg, ok := EventOrderCancelled.Aggregate(); !ok || agg != AggregateOrder {
		t.Fatalf("expected order aggregate, got %q", agg)
	}
	if agg, ok := EventProductStatusSet.Aggregate(); !ok || agg != AggregateProduct {
		t.Fatalf("expected product aggregate, got %q", agg)
	}
	if _, err := ParseOutboxEventType("cart_updated"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if OutboxAggregateType("cart").IsValid() {
		t.Fatal("cart is not an outbox aggregate")
	}
}
