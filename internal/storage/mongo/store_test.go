package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/storage/storagetest"
)

// TestStoreIntegration runs the storage conformance suite against a live server.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_MONGO_INTEGRATION") != "true" {
		t.Skip("set RUN_MONGO_INTEGRATION=true and MONGODB_URI to run this integration test")
	}
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Fatal("MONGODB_URI is required")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		database := fmt.Sprintf("custody_test_%d", time.Now().UnixNano())
		s, err := NewStore(ctx, uri, database)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.client.Database(database).Drop(ctx)
			s.Close()
		})
		return s
	})
}

func TestCartItemDoc_PreservesDecimal(t *testing.T) {
	price, err := primitive.ParseDecimal128("19.99")
	require.NoError(t, err)

	item, err := cartItemDoc{ID: "i1", AccountID: "a1", Product: "P", Quantity: 2, UnitPrice: price}.model()
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("19.99")))
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("op", mongo.ErrNoDocuments), storage.ErrNotFound)
	assert.ErrorIs(t, classify("op", mongo.ErrClientDisconnected), apperr.ErrDependency)
	assert.ErrorIs(t, classify("op", context.DeadlineExceeded), apperr.ErrDependencyTimeout)
}
