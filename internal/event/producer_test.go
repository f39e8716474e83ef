package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics_MatchConsumerContract(t *testing.T) {
	// Downstream consumers subscribe by these exact names.
	assert.Equal(t, "storefront.cart.updated", TopicCartUpdated)
	assert.Equal(t, "storefront.cart.cleared", TopicCartCleared)
	assert.Equal(t, "storefront.catalog.refreshed", TopicCatalogRefreshed)
	assert.Equal(t, "storefront.session.created", TopicSessionCreated)
}
