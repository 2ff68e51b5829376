package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/records"
)

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Add(ctx, &records.Record{
		EntityType:           records.EntityPolicy,
		ID:                   "p1",
		Name:                 "original",
		RegulatoryFrameworks: []string{"SOX"},
		CreatedAt:            time.Now(),
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	got, _ := s.Get(ctx, records.EntityPolicy, "p1")
	got.Name = "mutated"
	got.RegulatoryFrameworks[0] = "HIPAA"

	again, _ := s.Get(ctx, records.EntityPolicy, "p1")
	if again.Name != "original" || again.RegulatoryFrameworks[0] != "SOX" {
		t.Errorf("stored record was mutated through a returned copy: %+v", again)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Add(ctx, &records.Record{EntityType: records.EntityAcknowledgement, CreatedAt: time.Now()})
			if err != nil {
				t.Errorf("Add() failed: %v", err)
				return
			}
			if _, err := s.Get(ctx, records.EntityAcknowledgement, id); err != nil {
				t.Errorf("Get() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := s.Query(ctx, records.EntityAcknowledgement, nil)
	if len(all) != 20 {
		t.Errorf("Query() returned %d records, want 20", len(all))
	}
}
