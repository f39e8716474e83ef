package integration

import (
	"strings"
	"testing"
)

const storefrontPort = 8010

// TestHealthEndpoints verifies liveness and readiness of a running storefront.
func TestHealthEndpoints(t *testing.T) {
	skipIfNotRunning(t, storefrontPort)

	status, _ := httpGet(t, baseURL(storefrontPort)+"/health/live")
	requireStatus(t, status, 200)
}

// TestSessionIdentity verifies that the service reports a stable session ID.
func TestSessionIdentity(t *testing.T) {
	skipIfNotRunning(t, storefrontPort)

	status, data := httpGet(t, baseURL(storefrontPort)+"/api/v1/storefront/session")
	requireStatus(t, status, 200)

	sessionID := extractString(t, data, "data.session_id")
	if !strings.HasPrefix(sessionID, "sess-") {
		t.Fatalf("unexpected session id format: %s", sessionID)
	}

	// The identity is stable across requests.
	status, data = httpGet(t, baseURL(storefrontPort)+"/api/v1/storefront/session")
	requireStatus(t, status, 200)
	again := extractString(t, data, "data.session_id")
	if again != sessionID {
		t.Fatalf("session id changed between requests: %s vs %s", sessionID, again)
	}
}

// TestProductCatalog verifies that the cached catalog is served.
func TestProductCatalog(t *testing.T) {
	skipIfNotRunning(t, storefrontPort)

	// Force a sync so the catalog reflects the inventory service.
	status, _ := httpPost(t, baseURL(storefrontPort)+"/api/v1/storefront/refresh", nil)
	if status != 200 {
		t.Skipf("inventory service not reachable (refresh returned %d)", status)
	}

	status, data := httpGet(t, baseURL(storefrontPort)+"/api/v1/storefront/products")
	requireStatus(t, status, 200)

	if extractField(data, "data") == nil {
		t.Fatal("expected data in products response, got nil")
	}
}

// TestCartFlow exercises the full mutation cycle: add, update, remove, clear.
func TestCartFlow(t *testing.T) {
	skipIfNotRunning(t, storefrontPort)

	base := baseURL(storefrontPort) + "/api/v1/storefront"

	status, _ := httpPost(t, base+"/refresh", nil)
	if status != 200 {
		t.Skipf("inventory service not reachable (refresh returned %d)", status)
	}

	// Pick the first in-stock product from the catalog.
	status, data := httpGet(t, base+"/products")
	requireStatus(t, status, 200)
	products, ok := extractField(data, "data").([]interface{})
	if !ok || len(products) == 0 {
		t.Skip("no products seeded in the inventory service")
	}
	var productID string
	for _, p := range products {
		m, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if inStock, _ := m["in_stock"].(bool); inStock {
			productID, _ = m["id"].(string)
			break
		}
	}
	if productID == "" {
		t.Skip("no in-stock products available")
	}

	// Start from a clean cart.
	status, _ = httpDelete(t, base+"/cart/")
	requireStatus(t, status, 200)

	// Add one unit.
	status, data = httpPost(t, base+"/cart/items", map[string]interface{}{
		"product_id": productID,
		"quantity":   1,
	})
	requireStatus(t, status, 200)

	items, ok := extractField(data, "data.items").([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected exactly one cart line after add, got %v", extractField(data, "data.items"))
	}
	line, _ := items[0].(map[string]interface{})
	itemID, _ := line["id"].(string)
	if itemID == "" {
		t.Fatal("cart line has no id")
	}

	// The summary aggregates match the cart.
	status, data = httpGet(t, base+"/cart/summary")
	requireStatus(t, status, 200)
	if count := extractFloat(t, data, "data.item_count"); count != 1 {
		t.Fatalf("expected item_count 1, got %v", count)
	}
	total := extractString(t, data, "data.total")
	if !strings.Contains(total, ".") {
		t.Fatalf("expected a two-decimal total, got %q", total)
	}

	// Bump the quantity.
	status, data = httpPut(t, base+"/cart/items/"+itemID, map[string]interface{}{
		"quantity": 2,
	})
	requireStatus(t, status, 200)
	if count := extractFloat(t, data, "data.item_count"); count != 2 {
		t.Fatalf("expected item_count 2 after update, got %v", count)
	}

	// Remove the line; removing it again is still success.
	status, _ = httpDelete(t, base+"/cart/items/"+itemID)
	requireStatus(t, status, 200)
	status, _ = httpDelete(t, base+"/cart/items/"+itemID)
	requireStatus(t, status, 200)

	// Clear leaves an empty cart.
	status, _ = httpDelete(t, base+"/cart/")
	requireStatus(t, status, 200)

	status, data = httpGet(t, base+"/cart/summary")
	requireStatus(t, status, 200)
	if count := extractFloat(t, data, "data.item_count"); count != 0 {
		t.Fatalf("expected empty cart after clear, got item_count %v", count)
	}
	if total := extractString(t, data, "data.total"); total != "0.00" {
		t.Fatalf("expected total 0.00 after clear, got %q", total)
	}
}

// TestValidationErrors verifies the error envelope for bad mutation requests.
func TestValidationErrors(t *testing.T) {
	skipIfNotRunning(t, storefrontPort)

	base := baseURL(storefrontPort) + "/api/v1/storefront"

	status, data := httpPost(t, base+"/cart/items", map[string]interface{}{
		"quantity": 0,
	})
	requireStatus(t, status, 400)
	if code := extractString(t, data, "error.code"); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %q", code)
	}
}
