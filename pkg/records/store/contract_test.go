package store

import (
	"context"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/records"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s records.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("AddGetRecord", func(t *testing.T) {
		published := base.Add(48 * time.Hour)
		id, err := s.Add(ctx, &records.Record{
			EntityType:           records.EntityPolicy,
			ID:                   "pol-1",
			Name:                 "Expense Policy",
			Status:               records.StatusPublished,
			Classification:       "Confidential",
			Category:             "Finance",
			RegulatoryFrameworks: []string{"SOX", "GDPR"},
			CreatedAt:            base,
			PublishedAt:          &published,
		})
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
		if id != "pol-1" {
			t.Errorf("Add() id = %q, want pol-1", id)
		}

		got, err := s.Get(ctx, records.EntityPolicy, "pol-1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Name != "Expense Policy" || got.Category != "Finance" {
			t.Errorf("Get() = %+v", got)
		}
		if len(got.RegulatoryFrameworks) != 2 || got.RegulatoryFrameworks[0] != "SOX" {
			t.Errorf("RegulatoryFrameworks = %v", got.RegulatoryFrameworks)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, published)
		}
		if got.ModifiedAt != nil {
			t.Errorf("ModifiedAt = %v, want nil", got.ModifiedAt)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}
	})

	t.Run("GeneratedID", func(t *testing.T) {
		id, err := s.Add(ctx, &records.Record{
			EntityType: records.EntityAcknowledgement,
			Name:       "ack",
			Status:     records.StatusAcknowledged,
			CreatedAt:  base.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
		if id == "" {
			t.Fatal("Add() returned empty id")
		}
		if _, err := s.Get(ctx, records.EntityAcknowledgement, id); err != nil {
			t.Errorf("Get() failed: %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, records.EntityPolicy, "missing")
		if !records.IsNotFound(err) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("EntityTypesAreSeparate", func(t *testing.T) {
		_, err := s.Get(ctx, records.EntityAcknowledgement, "pol-1")
		if !records.IsNotFound(err) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateRecord", func(t *testing.T) {
		archived := true
		status := records.StatusArchived
		at := base.Add(72 * time.Hour)
		err := s.Update(ctx, records.EntityPolicy, "pol-1", &records.RecordUpdate{
			Status:     &status,
			IsArchived: &archived,
			ArchivedAt: &at,
		})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}

		got, err := s.Get(ctx, records.EntityPolicy, "pol-1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if !got.IsArchived || got.Status != records.StatusArchived {
			t.Errorf("record not archived: %+v", got)
		}
		if got.ArchivedAt == nil || !got.ArchivedAt.Equal(at) {
			t.Errorf("ArchivedAt = %v, want %v", got.ArchivedAt, at)
		}
	})

	t.Run("UpdateHoldFlags", func(t *testing.T) {
		start := base.Add(96 * time.Hour)
		err := s.Update(ctx, records.EntityPolicy, "pol-1", &records.RecordUpdate{
			LegalHold: &records.HoldFlags{Held: true, Reason: "Litigation", StartDate: &start},
		})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		got, _ := s.Get(ctx, records.EntityPolicy, "pol-1")
		if !got.LegalHold.Held || got.LegalHold.Reason != "Litigation" {
			t.Errorf("LegalHold = %+v", got.LegalHold)
		}

		err = s.Update(ctx, records.EntityPolicy, "pol-1", &records.RecordUpdate{
			LegalHold: &records.HoldFlags{},
		})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		got, _ = s.Get(ctx, records.EntityPolicy, "pol-1")
		if got.LegalHold.Held || got.LegalHold.StartDate != nil {
			t.Errorf("LegalHold not cleared: %+v", got.LegalHold)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		status := records.StatusArchived
		err := s.Update(ctx, records.EntityPolicy, "missing", &records.RecordUpdate{Status: &status})
		if !records.IsNotFound(err) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
		err = s.Update(ctx, records.EntityPolicy, "missing", &records.RecordUpdate{})
		if !records.IsNotFound(err) {
			t.Errorf("empty Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("QueryFilter", func(t *testing.T) {
		for i, cat := range []string{"HR", "HR", "IT"} {
			_, err := s.Add(ctx, &records.Record{
				EntityType: records.EntityPolicy,
				ID:         "q-" + string(rune('a'+i)),
				Name:       "query",
				Status:     records.StatusPublished,
				Category:   cat,
				CreatedAt:  base.AddDate(1, 0, i),
			})
			if err != nil {
				t.Fatalf("Add() failed: %v", err)
			}
		}

		got, err := s.Query(ctx, records.EntityPolicy, &records.Filter{Category: "HR"})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(got) != 2 || got[0].ID != "q-a" || got[1].ID != "q-b" {
			t.Errorf("Query(HR) = %v", ids(got))
		}

		got, err = s.Query(ctx, records.EntityPolicy, &records.Filter{ExcludeArchived: true})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		for _, r := range got {
			if r.ID == "pol-1" {
				t.Error("ExcludeArchived returned archived record")
			}
		}

		got, err = s.Query(ctx, records.EntityPolicy, &records.Filter{IDs: []string{"q-c", "pol-1"}})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(got) != 2 || got[0].ID != "pol-1" {
			t.Errorf("Query(IDs) = %v", ids(got))
		}

		got, err = s.Query(ctx, records.EntityPolicy, &records.Filter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "q-a" {
			t.Errorf("Query(page) = %v", ids(got))
		}

		got, err = s.Query(ctx, records.EntityPolicy, &records.Filter{Offset: 3})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "q-c" {
			t.Errorf("Query(offset) = %v", ids(got))
		}
	})

	t.Run("DeleteRecord", func(t *testing.T) {
		if err := s.Delete(ctx, records.EntityPolicy, "q-c"); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := s.Get(ctx, records.EntityPolicy, "q-c"); !records.IsNotFound(err) {
			t.Errorf("Get() after Delete error = %v", err)
		}
		if err := s.Delete(ctx, records.EntityPolicy, "q-c"); !records.IsNotFound(err) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Holds", func(t *testing.T) {
		end := base.AddDate(2, 0, 0)
		first, err := s.AddHold(ctx, &records.LegalHold{
			EntityType:  records.EntityPolicy,
			EntityID:    "pol-1",
			EntityName:  "Expense Policy",
			Reason:      "Litigation",
			RequestedBy: "u-1",
			StartDate:   base,
			EndDate:     &end,
			Status:      records.HoldActive,
		})
		if err != nil {
			t.Fatalf("AddHold() failed: %v", err)
		}
		second, err := s.AddHold(ctx, &records.LegalHold{
			EntityType:    records.EntityAcknowledgement,
			EntityID:      "ack-1",
			Reason:        "Audit",
			CaseReference: "CASE-7",
			RequestedBy:   "u-2",
			StartDate:     base.Add(24 * time.Hour),
			Status:        records.HoldActive,
		})
		if err != nil {
			t.Fatalf("AddHold() failed: %v", err)
		}

		active, err := s.QueryHolds(ctx, &records.HoldFilter{Status: records.HoldActive})
		if err != nil {
			t.Fatalf("QueryHolds() failed: %v", err)
		}
		if len(active) != 2 || active[0].ID != second || active[1].ID != first {
			t.Fatalf("QueryHolds() order wrong: got %d holds", len(active))
		}
		if active[0].CaseReference != "CASE-7" {
			t.Errorf("CaseReference = %q", active[0].CaseReference)
		}

		h, err := s.GetHold(ctx, first)
		if err != nil {
			t.Fatalf("GetHold() failed: %v", err)
		}
		if h.EndDate == nil || !h.EndDate.Equal(end) {
			t.Errorf("EndDate = %v, want %v", h.EndDate, end)
		}

		released := base.Add(48 * time.Hour)
		h.Status = records.HoldReleased
		h.ReleasedBy = "u-9"
		h.ReleasedAt = &released
		h.ReleaseReason = "Settled"
		if err := s.UpdateHold(ctx, h); err != nil {
			t.Fatalf("UpdateHold() failed: %v", err)
		}

		h, _ = s.GetHold(ctx, first)
		if h.Status != records.HoldReleased || h.ReleaseReason != "Settled" {
			t.Errorf("hold not released: %+v", h)
		}

		active, _ = s.QueryHolds(ctx, &records.HoldFilter{Status: records.HoldActive})
		if len(active) != 1 {
			t.Errorf("active holds = %d, want 1", len(active))
		}

		byTarget, _ := s.QueryHolds(ctx, &records.HoldFilter{EntityType: records.EntityPolicy, EntityID: "pol-1"})
		if len(byTarget) != 1 {
			t.Errorf("holds for pol-1 = %d, want 1", len(byTarget))
		}

		if _, err := s.GetHold(ctx, "missing"); !records.IsNotFound(err) {
			t.Errorf("GetHold() error = %v, want ErrNotFound", err)
		}
		if err := s.UpdateHold(ctx, &records.LegalHold{ID: "missing", Status: records.HoldReleased}); !records.IsNotFound(err) {
			t.Errorf("UpdateHold() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Archives", func(t *testing.T) {
		for i, orig := range []string{"pol-1", "ack-1"} {
			_, err := s.AddArchive(ctx, &records.ArchiveRecord{
				EntityType: records.EntityPolicy,
				OriginalID: orig,
				EntityName: "archived",
				Snapshot:   `{"id":"` + orig + `"}`,
				ArchivedBy: "system",
				ArchivedAt: base.Add(time.Duration(i) * time.Hour),
				PolicyID:   "ret-1",
			})
			if err != nil {
				t.Fatalf("AddArchive() failed: %v", err)
			}
		}

		all, err := s.QueryArchives(ctx, &records.ArchiveFilter{PolicyID: "ret-1"})
		if err != nil {
			t.Fatalf("QueryArchives() failed: %v", err)
		}
		if len(all) != 2 || all[0].OriginalID != "pol-1" {
			t.Errorf("QueryArchives() = %+v", all)
		}

		one, _ := s.QueryArchives(ctx, &records.ArchiveFilter{OriginalID: "ack-1"})
		if len(one) != 1 || one[0].Snapshot != `{"id":"ack-1"}` {
			t.Errorf("QueryArchives(ack-1) = %+v", one)
		}
	})
}

func ids(rs []*records.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
