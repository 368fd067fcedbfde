package model

import (
	"testing"
	"time"
)

func TestBatchToken(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	tok1 := BatchToken(t1)
	tok2 := BatchToken(t2)

	if tok1 == tok2 {
		t.Error("different cycle times should produce different tokens")
	}
	if tok1 != BatchToken(t1) {
		t.Error("same cycle time should produce the same token")
	}
	if BatchToken(t1.In(time.FixedZone("X", 3600))) != tok1 {
		t.Error("token should not depend on the time's zone")
	}
}

func TestFreshnessKey(t *testing.T) {
	updated := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	withBatch := Article{UpdatedAt: updated, ScrapeBatchTime: batch}
	if !withBatch.FreshnessKey().Equal(batch) {
		t.Error("batch time should win when present")
	}

	withoutBatch := Article{UpdatedAt: updated}
	if !withoutBatch.FreshnessKey().Equal(updated) {
		t.Error("updated_at should be the fallback")
	}
}

func TestReferenceTime(t *testing.T) {
	published := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	a := Article{PublishedAt: published, UpdatedAt: updated}
	if !a.ReferenceTime().Equal(updated) {
		t.Error("updated_at should win when present")
	}

	b := Article{PublishedAt: published}
	if !b.ReferenceTime().Equal(published) {
		t.Error("published_at should be the fallback")
	}
}

func TestCategoryValid(t *testing.T) {
	for _, cat := range Categories() {
		if !cat.Valid() {
			t.Errorf("%s should be valid", cat)
		}
	}
	if Category("sports").Valid() {
		t.Error("unknown category should be invalid")
	}
}
