package store

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// Helper function to create an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return store
}

func sampleRun() *Run {
	return &Run{
		Kind:         KindHubs,
		Connectivity: "sc",
		Parcellation: "aparc",
		Source:       "22q/case-controls_CortThick:d_icv",
		Correlation:  "pearson",
		NRot:         100,
		Seed:         7,
		R:            -0.61,
		P:            0.004,
		Params:       map[string]string{"threshold": "1"},
	}
}

func TestNoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// Do NOT call CreateSchema; simulate uninitialized database.
	if _, err := s.ListRuns("", 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListRuns() error = %v; want ErrNotInitialized", err)
	}
	if _, err := s.GetRun("abc"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetRun() error = %v; want ErrNotInitialized", err)
	}
	if _, err := s.CountRuns(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CountRuns() error = %v; want ErrNotInitialized", err)
	}
	if _, _, err := s.GetSpins(SpinKey{Parcellation: "aparc"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetSpins() error = %v; want ErrNotInitialized", err)
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "enigma hubs") {
		t.Errorf("ErrNotInitialized message %q should point at an analysis command", ErrNotInitialized.Error())
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	results := []Result{
		{Index: 0, Region: "L_bankssts", Value: 3.2, R: math.NaN(), P: math.NaN(), Hub: false},
		{Index: 1, Region: "L_cuneus", Value: 7.9, R: math.NaN(), P: math.NaN(), Hub: true},
	}
	null := []float64{0.1, -0.2, math.NaN(), 0.3}

	if err := s.SaveRun(run, results, null); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("SaveRun() should assign an ID")
	}
	if run.Status != StatusComplete {
		t.Errorf("Status = %q, want %q", run.Status, StatusComplete)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Kind != KindHubs || got.Parcellation != "aparc" || got.NRot != 100 || got.Seed != 7 {
		t.Errorf("GetRun() = %+v", got)
	}
	if got.R != -0.61 || got.P != 0.004 {
		t.Errorf("R, P = %v, %v", got.R, got.P)
	}
	if got.Params["threshold"] != "1" {
		t.Errorf("Params = %v", got.Params)
	}
	if time.Since(got.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	rows, err := s.GetResults(run.ID)
	if err != nil {
		t.Fatalf("GetResults() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d results, want 2", len(rows))
	}
	if rows[1].Region != "L_cuneus" || !rows[1].Hub || rows[1].Value != 7.9 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if !math.IsNaN(rows[0].R) {
		t.Errorf("NaN r should round-trip as NaN, got %v", rows[0].R)
	}

	gotNull, err := s.GetNull(run.ID)
	if err != nil {
		t.Fatalf("GetNull() failed: %v", err)
	}
	if len(gotNull) != 4 || gotNull[1] != -0.2 || !math.IsNaN(gotNull[2]) {
		t.Errorf("GetNull() = %v", gotNull)
	}
}

func TestSaveRun_NaNSummary(t *testing.T) {
	s := newTestStore(t)
	run := sampleRun()
	run.Kind = KindEpicenter
	run.R, run.P = math.NaN(), math.NaN()
	if err := s.SaveRun(run, nil, nil); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got.R) || !math.IsNaN(got.P) {
		t.Errorf("R, P = %v, %v; want NaN", got.R, got.P)
	}
	null, err := s.GetNull(run.ID)
	if err != nil || null != nil {
		t.Errorf("GetNull() = %v, %v; want nil, nil", null, err)
	}
}

func TestGetRun_Prefix(t *testing.T) {
	s := newTestStore(t)
	a := sampleRun()
	a.ID = "aaaa1111"
	b := sampleRun()
	b.ID = "aaaa2222"
	for _, r := range []*Run{a, b} {
		if err := s.SaveRun(r, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetRun("aaaa2")
	if err != nil {
		t.Fatalf("GetRun(prefix) failed: %v", err)
	}
	if got.ID != "aaaa2222" {
		t.Errorf("GetRun(prefix) = %s", got.ID)
	}

	if _, err := s.GetRun("aaaa"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("GetRun(ambiguous) error = %v", err)
	}
	if _, err := s.GetRun("zzzz"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v; want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, kind := range []string{KindHubs, KindEpicenter, KindHubs} {
		r := sampleRun()
		r.Kind = kind
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.SaveRun(r, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Error("runs should be newest first")
	}

	hubs, err := s.ListRuns(KindHubs, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hubs) != 2 {
		t.Errorf("got %d hub runs, want 2", len(hubs))
	}

	limited, err := s.ListRuns("", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || !limited[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Errorf("ListRuns(limit 1) = %+v", limited)
	}

	n, err := s.CountRuns()
	if err != nil || n != 3 {
		t.Errorf("CountRuns() = %d, %v", n, err)
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := newTestStore(t)
	run := sampleRun()
	if err := s.SaveRun(run, []Result{{Index: 0, Region: "x", Value: 1}}, []float64{0.5}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertReport(run.ID, "json", "/tmp/r.json"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	rows, _ := s.GetResults(run.ID)
	if len(rows) != 0 {
		t.Errorf("results survived delete: %v", rows)
	}
	reports, _ := s.ListReports(run.ID)
	if len(reports) != 0 {
		t.Errorf("reports survived delete: %v", reports)
	}
	if err := s.DeleteRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v; want ErrRunNotFound", err)
	}
}

func TestSpinCache(t *testing.T) {
	s := newTestStore(t)
	key := SpinKey{Parcellation: "aparc", Method: "rotate", NRot: 3, Seed: 1}

	if _, ok, err := s.GetSpins(key); err != nil || ok {
		t.Fatalf("GetSpins() on empty cache = %v, %v", ok, err)
	}

	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 0, 3, 2}}
	if err := s.PutSpins(key, perms); err != nil {
		t.Fatalf("PutSpins() failed: %v", err)
	}
	got, ok, err := s.GetSpins(key)
	if err != nil || !ok {
		t.Fatalf("GetSpins() = %v, %v", ok, err)
	}
	for k := range perms {
		for i := range perms[k] {
			if got[k][i] != perms[k][i] {
				t.Fatalf("GetSpins()[%d] = %v, want %v", k, got[k], perms[k])
			}
		}
	}

	// A different seed is a different entry.
	if _, ok, _ := s.GetSpins(SpinKey{Parcellation: "aparc", Method: "rotate", NRot: 3, Seed: 2}); ok {
		t.Error("GetSpins() hit for another seed")
	}

	list, err := s.ListSpins()
	if err != nil {
		t.Fatalf("ListSpins() failed: %v", err)
	}
	if len(list) != 1 || list[0].Size != 4 || list[0].Bytes == 0 {
		t.Errorf("ListSpins() = %+v", list)
	}

	n, err := s.ClearSpins()
	if err != nil || n != 1 {
		t.Errorf("ClearSpins() = %d, %v", n, err)
	}
}

func TestPutSpins_Ragged(t *testing.T) {
	s := newTestStore(t)
	if err := s.PutSpins(SpinKey{Parcellation: "x", Method: "rotate"}, [][]int{{0, 1}, {0}}); err == nil {
		t.Error("expected error for ragged permutations")
	}
}

func TestReports(t *testing.T) {
	s := newTestStore(t)
	run := sampleRun()
	if err := s.SaveRun(run, nil, nil); err != nil {
		t.Fatal(err)
	}

	id, err := s.InsertReport(run.ID, "csv", "/tmp/a.csv")
	if err != nil {
		t.Fatalf("InsertReport() failed: %v", err)
	}
	r, err := s.GetReport(id)
	if err != nil {
		t.Fatalf("GetReport() failed: %v", err)
	}
	if r.RunID != run.ID || r.Format != "csv" || r.Path != "/tmp/a.csv" {
		t.Errorf("GetReport() = %+v", r)
	}

	if _, err := s.InsertReport("no-such-run", "csv", "/tmp/b.csv"); err == nil {
		t.Error("InsertReport() should fail for an unknown run")
	}

	all, err := s.ListReports("")
	if err != nil || len(all) != 1 {
		t.Errorf("ListReports() = %v, %v", all, err)
	}

	if err := s.DeleteReport(id); err != nil {
		t.Fatalf("DeleteReport() failed: %v", err)
	}
	if _, err := s.GetReport(id); err == nil {
		t.Error("GetReport() should fail after delete")
	}
}

func TestCodec_Floats(t *testing.T) {
	in := []float64{1.5, math.Inf(-1), 0}
	data, err := encodeFloats(in)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeFloats(data, 4); err == nil {
		t.Error("decodeFloats() should reject a size mismatch")
	}
	out, err := decodeFloats(data, 3)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1.5 || !math.IsInf(out[1], -1) {
		t.Errorf("decodeFloats() = %v", out)
	}
}
