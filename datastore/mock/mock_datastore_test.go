/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/suparena/featureloader/datastore"
	"github.com/suparena/featureloader/datastore/mock"
	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/storagemodels"
)

var _ datastore.DataStore[storagemodels.DatasetManifest] = (*mock.DataStore[storagemodels.DatasetManifest])(nil)

type TestEntity struct {
	ID   string
	Name string
}

func TestMockDataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		mockStore := mock.New[TestEntity]().
			WithGetKeyFunc(func(e TestEntity) string { return e.ID })

		entity := TestEntity{ID: "123", Name: "Test"}
		if err := mockStore.Put(ctx, entity); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		retrieved, err := mockStore.GetOne(ctx, "123")
		if err != nil {
			t.Fatalf("GetOne failed: %v", err)
		}
		if retrieved.ID != "123" || retrieved.Name != "Test" {
			t.Fatalf("Retrieved entity mismatch: %+v", retrieved)
		}

		if err := mockStore.Delete(ctx, "123"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := mockStore.GetOne(ctx, "123"); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got: %v", err)
		}
	})

	t.Run("KeyedEntities", func(t *testing.T) {
		store := mock.New[storagemodels.DatasetManifest]()
		m := storagemodels.DatasetManifest{ID: strfmt.UUID(uuid.NewString()), DataDir: "/d", Mode: "train"}
		if err := store.Put(ctx, m); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := store.GetOne(ctx, m.ID.String()); err != nil {
			t.Fatalf("GetOne failed: %v", err)
		}
	})

	t.Run("UnkeyedEntityIsRejected", func(t *testing.T) {
		err := mock.New[TestEntity]().Put(ctx, TestEntity{ID: "1"})
		if !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got: %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		boom := stderrors.New("boom")
		mockStore := mock.New[TestEntity]().WithPutError(boom).WithDeleteError(boom)
		if err := mockStore.Put(ctx, TestEntity{ID: "1"}); err != boom {
			t.Fatalf("Expected put error, got: %v", err)
		}
		if err := mockStore.Delete(ctx, "1"); err != boom {
			t.Fatalf("Expected delete error, got: %v", err)
		}
	})

	t.Run("Query", func(t *testing.T) {
		mockStore := mock.New[TestEntity]().
			WithGetKeyFunc(func(e TestEntity) string { return e.ID })
		for _, id := range []string{"c", "a", "b"} {
			if err := mockStore.Put(ctx, TestEntity{ID: id}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		limit := int32(2)
		results, err := mockStore.Query(ctx, &storagemodels.QueryParams{Limit: &limit})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(results) != 2 || results[0].ID != "a" || results[1].ID != "b" {
			t.Fatalf("Unexpected query results: %+v", results)
		}

		mockStore.Clear()
		if mockStore.Count() != 0 {
			t.Fatalf("Expected empty store after Clear")
		}
	})
}
