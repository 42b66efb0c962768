package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seedRecord(t *testing.T, s *SQLiteStore, rec Record) Record {
	t.Helper()
	if err := s.Append(context.Background(), &rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	return rec
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)
	var last int64
	for i := 0; i < 5; i++ {
		rec := seedRecord(t, s, Record{
			RequestID: fmt.Sprintf("req-%d", i),
			TaskType:  "echo",
			Status:    StatusSuccess,
		})
		if rec.ID <= last {
			t.Fatalf("id %d not monotonic after %d", rec.ID, last)
		}
		last = rec.ID
	}
}

func TestQueryFiltersByTaskType(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, Record{RequestID: "a", TaskType: "echo", Status: StatusSuccess})
	seedRecord(t, s, Record{RequestID: "b", TaskType: "default_llm", Status: StatusSuccess})
	seedRecord(t, s, Record{RequestID: "c", TaskType: "echo", Status: StatusError})

	res, err := s.Query(context.Background(), QueryOptions{TaskType: "echo"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.TotalMatches != 2 || len(res.Records) != 2 {
		t.Fatalf("result = total %d, page %d", res.TotalMatches, len(res.Records))
	}
	for _, r := range res.Records {
		if r.TaskType != "echo" {
			t.Errorf("leaked task_type %q", r.TaskType)
		}
	}
}

func TestQueryDateRange(t *testing.T) {
	s := newTestStore(t)
	day := func(d string) time.Time {
		ts, _ := time.Parse("2006-01-02", d)
		return ts
	}
	seedRecord(t, s, Record{RequestID: "old", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-01-05")})
	seedRecord(t, s, Record{RequestID: "mid", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-02-10")})
	seedRecord(t, s, Record{RequestID: "new", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-03-20")})

	res, err := s.Query(context.Background(), QueryOptions{StartDate: "2026-02-01", EndDate: "2026-02-28"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.TotalMatches != 1 || res.Records[0].RequestID != "mid" {
		t.Errorf("result = %+v", res)
	}
}

func TestQueryPaginationIsDisjointAndComplete(t *testing.T) {
	s := newTestStore(t)
	const total = 23
	for i := 0; i < total; i++ {
		seedRecord(t, s, Record{
			RequestID: fmt.Sprintf("req-%02d", i),
			TaskType:  "echo",
			Status:    StatusSuccess,
			LatencyMS: int64(i),
		})
	}

	seen := make(map[int64]bool)
	for offset := 0; ; offset += 10 {
		res, err := s.Query(context.Background(), QueryOptions{SortBy: "id", SortOrder: "asc", Limit: 10, Offset: offset})
		if err != nil {
			t.Fatalf("query offset %d: %v", offset, err)
		}
		if res.TotalMatches != total {
			t.Fatalf("total = %d, want %d", res.TotalMatches, total)
		}
		if len(res.Records) == 0 {
			break
		}
		for _, r := range res.Records {
			if seen[r.ID] {
				t.Fatalf("id %d returned on two pages", r.ID)
			}
			seen[r.ID] = true
		}
	}
	if len(seen) != total {
		t.Errorf("pages covered %d records, want %d", len(seen), total)
	}
}

func TestQuerySortWhitelist(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Query(context.Background(), QueryOptions{SortBy: "prompt; DROP TABLE interactions"})
	if !errors.Is(err, ErrInvalidSortColumn) {
		t.Fatalf("expected ErrInvalidSortColumn, got %v", err)
	}

	seedRecord(t, s, Record{RequestID: "x", TaskType: "echo", Status: StatusSuccess, LatencyMS: 100})
	seedRecord(t, s, Record{RequestID: "y", TaskType: "echo", Status: StatusSuccess, LatencyMS: 5})
	res, err := s.Query(context.Background(), QueryOptions{SortBy: "latency_ms", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Records[0].LatencyMS != 5 {
		t.Errorf("asc sort order = %+v", res.Records)
	}
}

func TestAppendTruncatesLongFields(t *testing.T) {
	s := newTestStore(t)
	long := strings.Repeat("x", maxFieldLen+500)
	rec := seedRecord(t, s, Record{RequestID: "big", TaskType: "echo", Status: StatusSuccess, Prompt: long, ResponseData: long})

	res, err := s.Query(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var got *Record
	for i := range res.Records {
		if res.Records[i].ID == rec.ID {
			got = &res.Records[i]
		}
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if len(got.Prompt) != maxFieldLen || len(got.ResponseData) != maxFieldLen {
		t.Errorf("stored lengths = %d, %d", len(got.Prompt), len(got.ResponseData))
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	// Three-byte runes never divide the limit evenly, so a naive byte
	// slice would split one in half.
	long := strings.Repeat("日", maxFieldLen/3+10)
	got := truncate(long)
	if len(got) > maxFieldLen {
		t.Fatalf("truncated length = %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncated copy is not valid UTF-8")
	}
	if got != long[:len(got)] {
		t.Fatal("truncation altered the prefix")
	}

	short := "prompt"
	if truncate(short) != short {
		t.Error("short strings must pass through untouched")
	}
}

func TestTasksOverTimeGranularity(t *testing.T) {
	s := newTestStore(t)
	day := func(d string) time.Time {
		ts, _ := time.Parse("2006-01-02", d)
		return ts
	}
	seedRecord(t, s, Record{RequestID: "a", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-01-05")})
	seedRecord(t, s, Record{RequestID: "b", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-01-05")})
	seedRecord(t, s, Record{RequestID: "c", TaskType: "echo", Status: StatusSuccess, Timestamp: day("2026-02-10")})

	buckets, err := s.TasksOverTime(context.Background(), "day", RangeFilter{})
	if err != nil {
		t.Fatalf("tasks over time: %v", err)
	}
	if len(buckets) != 2 || buckets[0].DateGroup != "2026-01-05" || buckets[0].Count != 2 {
		t.Errorf("day buckets = %+v", buckets)
	}

	buckets, err = s.TasksOverTime(context.Background(), "month", RangeFilter{})
	if err != nil {
		t.Fatalf("tasks over time: %v", err)
	}
	if len(buckets) != 2 || buckets[0].DateGroup != "2026-01" {
		t.Errorf("month buckets = %+v", buckets)
	}

	if _, err := s.TasksOverTime(context.Background(), "hourly", RangeFilter{}); err == nil {
		t.Error("expected error for invalid granularity")
	}
}

func TestProviderAggregationsSkipLocalSkills(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, Record{RequestID: "a", TaskType: "default_llm", Provider: "gemini-pro", Status: StatusSuccess, LatencyMS: 100})
	seedRecord(t, s, Record{RequestID: "b", TaskType: "default_llm", Provider: "gemini-pro", Status: StatusSuccess, LatencyMS: 300})
	seedRecord(t, s, Record{RequestID: "c", TaskType: "echo", Provider: "", Status: StatusSuccess, LatencyMS: 1})

	counts, err := s.RequestsPerProvider(context.Background(), RangeFilter{})
	if err != nil {
		t.Fatalf("requests per provider: %v", err)
	}
	if len(counts) != 1 || counts[0].Provider != "gemini-pro" || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}

	lats, err := s.AvgLatencyPerProvider(context.Background(), RangeFilter{})
	if err != nil {
		t.Fatalf("avg latency: %v", err)
	}
	if len(lats) != 1 || lats[0].AvgMS != 200 {
		t.Errorf("latencies = %+v", lats)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	const writers, each = 8, 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				rec := Record{
					RequestID: fmt.Sprintf("w%d-%d", w, i),
					TaskType:  "echo",
					Status:    StatusSuccess,
				}
				if err := s.Append(context.Background(), &rec); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	res, err := s.Query(context.Background(), QueryOptions{Limit: writers * each})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.TotalMatches != writers*each {
		t.Errorf("total = %d, want %d", res.TotalMatches, writers*each)
	}
}
