package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/sbs27/salespipe/adapter"
	"github.com/sbs27/salespipe/archive"
	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/sink"
	"github.com/sbs27/salespipe/snapshot"
	"github.com/sbs27/salespipe/source"
	"github.com/sbs27/salespipe/types"
)

var testTime = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.NewWithWriter("error", io.Discard)
}

func testMeta() types.RunMeta {
	return types.RunMeta{RunID: "run-001", Trigger: types.TriggerCLI}
}

// rawRecords is the canonical three-row input set.
func rawRecords() []types.RawRecord {
	return []types.RawRecord{
		{Date: "2024-01-01", Product: "Laptop", Amount: 100000, Quantity: 2},
		{Date: "2024-01-02", Product: "Mouse", Amount: 2000, Quantity: 5},
		{Date: "2024-01-03", Product: "Widget", Amount: 1000, Quantity: 1},
	}
}

// memoryArchive builds an archive whose dataset and sidecar files share
// one in-memory store, so tests can read back what the run wrote.
func memoryArchive(t *testing.T) *archive.Archive {
	t.Helper()
	store := lode.NewMemory()
	arch, err := archive.NewWithFactory(archive.Config{Backend: archive.BackendMemory},
		func() (lode.Store, error) { return store, nil })
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	return arch
}

// failingStore is a lode.Store whose writes always fail.
type failingStore struct {
	putErr error
}

func (s *failingStore) Put(_ context.Context, _ string, _ io.Reader) error { return s.putErr }
func (s *failingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not found")
}
func (s *failingStore) Exists(_ context.Context, _ string) (bool, error)   { return false, nil }
func (s *failingStore) List(_ context.Context, _ string) ([]string, error) { return nil, nil }
func (s *failingStore) Delete(_ context.Context, _ string) error           { return nil }
func (s *failingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (s *failingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*failingStore)(nil)

// failingArchive builds an archive over a store that rejects every write.
func failingArchive(t *testing.T) *archive.Archive {
	t.Helper()
	store := &failingStore{putErr: errors.New("disk full")}
	arch, err := archive.NewWithFactory(archive.Config{Backend: archive.BackendMemory},
		func() (lode.Store, error) { return store, nil })
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	return arch
}

func stubConnector(s sink.Sink) Connector {
	return func(_ context.Context, _ sink.Config, _ *log.Logger) (sink.Sink, error) {
		return s, nil
	}
}

func failConnector(err error) Connector {
	return func(_ context.Context, _ sink.Config, _ *log.Logger) (sink.Sink, error) {
		return nil, err
	}
}

func TestExecute_Success(t *testing.T) {
	sinkStub := &sink.Stub{}
	adapterStub := &adapter.Stub{}
	collector := metrics.NewCollector("postgres", "memory")
	arch := memoryArchive(t)

	config := &Config{
		Source:    "sales_csv",
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(sinkStub),
		Archive:   arch,
		Adapters:  adapterStub,
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success (error: %s)", report.Outcome, report.Error)
	}
	if report.RecordsExtracted != 3 || report.RecordsInserted != 3 {
		t.Errorf("records = %d/%d, want 3/3", report.RecordsExtracted, report.RecordsInserted)
	}
	if report.RunID != "run-001" || report.Source != "sales_csv" {
		t.Errorf("identity = %s/%s, want run-001/sales_csv", report.RunID, report.Source)
	}
	if report.Error != "" || report.FallbackPath != "" {
		t.Errorf("error/fallback = %q/%q, want empty", report.Error, report.FallbackPath)
	}

	// Summary over the canonical vector
	if report.Summary.TotalRevenue != 103000 {
		t.Errorf("total revenue = %d, want 103000", report.Summary.TotalRevenue)
	}
	if report.Summary.AverageSale != 34333 {
		t.Errorf("average sale = %d, want 34333", report.Summary.AverageSale)
	}
	if report.Summary.UniqueProducts != 3 {
		t.Errorf("unique products = %d, want 3", report.Summary.UniqueProducts)
	}
	if report.Summary.TopProduct != "Laptop" {
		t.Errorf("top product = %q, want Laptop", report.Summary.TopProduct)
	}

	// Everything went through the sink in one call
	if sinkStub.InsertCalls != 1 {
		t.Errorf("insert calls = %d, want 1", sinkStub.InsertCalls)
	}
	if sinkStub.SchemaCalls != 1 {
		t.Errorf("schema calls = %d, want 1", sinkStub.SchemaCalls)
	}
	if len(sinkStub.Inserted) != 3 {
		t.Fatalf("inserted records = %d, want 3", len(sinkStub.Inserted))
	}
	wantTotals := []types.Cents{200000, 10000, 1000}
	wantCategories := []string{"Computers", "Accessories", "Other"}
	for i, rec := range sinkStub.Inserted {
		if rec.Total != wantTotals[i] {
			t.Errorf("record %d total = %d, want %d", i, rec.Total, wantTotals[i])
		}
		if rec.Category != wantCategories[i] {
			t.Errorf("record %d category = %q, want %q", i, rec.Category, wantCategories[i])
		}
	}

	// Cleanup ran exactly once
	if sinkStub.CloseCalls != 1 {
		t.Errorf("close calls = %d, want 1", sinkStub.CloseCalls)
	}

	// Secondary artifacts: snapshot, report.txt, report.json
	if len(report.ArtifactPaths) != 3 {
		t.Fatalf("artifact paths = %v, want 3 entries", report.ArtifactPaths)
	}

	// Notification fired with the success outcome
	if len(adapterStub.Events) != 1 {
		t.Fatalf("adapter events = %d, want 1", len(adapterStub.Events))
	}
	if adapterStub.Events[0].Outcome != "success" {
		t.Errorf("event outcome = %q, want success", adapterStub.Events[0].Outcome)
	}
	if adapterStub.Events[0].TotalRevenue != 103000 {
		t.Errorf("event revenue = %d, want 103000", adapterStub.Events[0].TotalRevenue)
	}

	snap := collector.Snapshot()
	if snap.RunsStarted != 1 || snap.RunsSucceeded != 1 {
		t.Errorf("runs = %d started / %d succeeded, want 1/1", snap.RunsStarted, snap.RunsSucceeded)
	}
	if snap.RecordsExtracted != 3 || snap.RecordsInserted != 3 {
		t.Errorf("record counters = %d/%d, want 3/3", snap.RecordsExtracted, snap.RecordsInserted)
	}
	if snap.NotifySuccess != 1 {
		t.Errorf("notify success = %d, want 1", snap.NotifySuccess)
	}
}

func TestExecute_SuccessArtifactsRoundTrip(t *testing.T) {
	arch := memoryArchive(t)

	config := &Config{
		Source:    "sales_csv",
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(&sink.Stub{}),
		Archive:   arch,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())
	if report.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", report.Outcome)
	}

	ra := arch.ForRun("sales_csv", testTime, "run-001")

	// The binary snapshot decodes back to the inserted record set
	data, err := ra.GetFile(t.Context(), snapshot.Filename)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	header, records, err := snapshot.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if header.RunID != "run-001" || header.RecordCount != 3 {
		t.Errorf("snapshot header = %s/%d, want run-001/3", header.RunID, header.RecordCount)
	}
	if len(records) != 3 || records[0].Product != "Laptop" {
		t.Errorf("snapshot records = %d, want 3 starting with Laptop", len(records))
	}

	// The JSON report parses back with the same outcome
	data, err = ra.GetFile(t.Context(), ReportJSONFilename)
	if err != nil {
		t.Fatalf("read report.json: %v", err)
	}
	var saved types.RunReport
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("unmarshal report.json: %v", err)
	}
	if saved.Outcome != types.OutcomeSuccess || saved.RecordsInserted != 3 {
		t.Errorf("saved report = %s/%d, want success/3", saved.Outcome, saved.RecordsInserted)
	}

	// The text report is human-readable
	data, err = ra.GetFile(t.Context(), ReportTextFilename)
	if err != nil {
		t.Fatalf("read report.txt: %v", err)
	}
	if !strings.Contains(string(data), "SALES PIPELINE RUN SUCCESS") {
		t.Errorf("report.txt missing headline:\n%s", data)
	}

	// The latest-report query finds this run
	latest, err := arch.LatestReport(t.Context(), "sales_csv")
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if latest["run_id"] != "run-001" {
		t.Errorf("latest run_id = %v, want run-001", latest["run_id"])
	}
}

func TestExecute_ExtractFailure(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")
	adapterStub := &adapter.Stub{}
	connectorCalled := false

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Err: &source.Error{Kind: source.ErrMissing, Path: "missing.csv", Err: errors.New("no such file")}},
		Connector: func(_ context.Context, _ sink.Config, _ *log.Logger) (sink.Sink, error) {
			connectorCalled = true
			return &sink.Stub{}, nil
		},
		Adapters:  adapterStub,
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if !strings.Contains(report.Error, "extract") {
		t.Errorf("error = %q, want extract stage named", report.Error)
	}
	if report.RecordsExtracted != 0 || report.RecordsInserted != 0 {
		t.Errorf("records = %d/%d, want 0/0", report.RecordsExtracted, report.RecordsInserted)
	}
	// No downstream stage runs after an extraction failure
	if connectorCalled {
		t.Error("connector called after extraction failure")
	}
	if snap := collector.Snapshot(); snap.RunsFailed != 1 {
		t.Errorf("runs failed = %d, want 1", snap.RunsFailed)
	}
	// Completion event still goes out, carrying the failure
	if len(adapterStub.Events) != 1 || adapterStub.Events[0].Outcome != "failure" {
		t.Errorf("adapter events = %+v, want one failure event", adapterStub.Events)
	}
	if report.Outcome.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", report.Outcome.ExitCode())
	}
}

func TestExecute_EmptyInputFails(t *testing.T) {
	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: nil},
		Connector: stubConnector(&sink.Stub{}),
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if !strings.Contains(report.Error, "transform") {
		t.Errorf("error = %q, want transform stage named", report.Error)
	}
}

func TestExecute_UnreachableSinkFallsBack(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")
	adapterStub := &adapter.Stub{}
	arch := memoryArchive(t)
	connectErr := &sink.Error{Kind: sink.ErrConnectivity, Op: "connect", Err: errors.New("after 5 attempts: connection refused")}

	config := &Config{
		Source:    "sales_csv",
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: failConnector(connectErr),
		Archive:   arch,
		Adapters:  adapterStub,
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomePartialFailure {
		t.Fatalf("outcome = %s, want partial_failure (error: %s)", report.Outcome, report.Error)
	}
	wantPath := "datasets/salespipe/partitions/source=sales_csv/day=2024-01-03/run_id=run-001/files/fallback.csv"
	if report.FallbackPath != wantPath {
		t.Errorf("fallback path = %q, want %q", report.FallbackPath, wantPath)
	}
	if report.RecordsInserted != 0 {
		t.Errorf("records inserted = %d, want 0", report.RecordsInserted)
	}
	// Data preserved, so the run exits 0
	if report.Outcome.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", report.Outcome.ExitCode())
	}

	// The fallback artifact holds exactly the transformed rows
	ra := arch.ForRun("sales_csv", testTime, "run-001")
	data, err := ra.GetFile(t.Context(), archive.FallbackFilename)
	if err != nil {
		t.Fatalf("read fallback: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 { // header + 3 rows
		t.Fatalf("fallback lines = %d, want 4:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[1], "Laptop") || !strings.Contains(lines[1], "2000.00") {
		t.Errorf("fallback row 1 = %q, want Laptop with total 2000.00", lines[1])
	}

	snap := collector.Snapshot()
	if snap.RunsPartial != 1 {
		t.Errorf("runs partial = %d, want 1", snap.RunsPartial)
	}
	if snap.RecordsFallback != 3 {
		t.Errorf("records fallback = %d, want 3", snap.RecordsFallback)
	}
	if snap.ConnectFailures != 1 {
		t.Errorf("connect failures = %d, want 1", snap.ConnectFailures)
	}

	if len(adapterStub.Events) != 1 {
		t.Fatalf("adapter events = %d, want 1", len(adapterStub.Events))
	}
	event := adapterStub.Events[0]
	if event.Outcome != "partial_failure" || event.FallbackPath != wantPath {
		t.Errorf("event = %s/%s, want partial_failure with fallback path", event.Outcome, event.FallbackPath)
	}
}

func TestExecute_FallbackWriteFailureDegrades(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: failConnector(errors.New("connection refused")),
		Archive:   failingArchive(t),
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if report.FallbackPath != "" {
		t.Errorf("fallback path = %q, want empty", report.FallbackPath)
	}
	if !strings.Contains(report.Error, "fallback write failed") {
		t.Errorf("error = %q, want fallback write named", report.Error)
	}
	if report.Outcome.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", report.Outcome.ExitCode())
	}
}

func TestExecute_ConnectFailureWithoutArchive(t *testing.T) {
	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: failConnector(errors.New("connection refused")),
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if !strings.Contains(report.Error, "no archive configured") {
		t.Errorf("error = %q, want missing archive named", report.Error)
	}
}

func TestExecute_SchemaFailureClosesConnection(t *testing.T) {
	sinkStub := &sink.Stub{SchemaErr: &sink.Error{Kind: sink.ErrSchema, Op: "ensure_schema", Err: errors.New("permission denied")}}

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(sinkStub),
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if !strings.Contains(report.Error, "schema") {
		t.Errorf("error = %q, want schema stage named", report.Error)
	}
	if sinkStub.InsertCalls != 0 {
		t.Errorf("insert calls = %d, want 0", sinkStub.InsertCalls)
	}
	if sinkStub.CloseCalls != 1 {
		t.Errorf("close calls = %d, want 1", sinkStub.CloseCalls)
	}
}

func TestExecute_InsertFailureClosesConnection(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")
	sinkStub := &sink.Stub{InsertErr: &sink.Error{Kind: sink.ErrInsert, Op: "insert", Err: errors.New("constraint violation")}}

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(sinkStub),
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", report.Outcome)
	}
	if report.RecordsInserted != 0 {
		t.Errorf("records inserted = %d, want 0", report.RecordsInserted)
	}
	if sinkStub.CloseCalls != 1 {
		t.Errorf("close calls = %d, want 1", sinkStub.CloseCalls)
	}
	snap := collector.Snapshot()
	if snap.RecordsInserted != 0 || snap.RunsFailed != 1 {
		t.Errorf("counters = %d inserted / %d failed, want 0/1", snap.RecordsInserted, snap.RunsFailed)
	}
}

func TestExecute_CloseFailureKeepsOutcome(t *testing.T) {
	var logBuf bytes.Buffer
	sinkStub := &sink.Stub{CloseErr: errors.New("already closed")}

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(sinkStub),
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, log.NewWithWriter("warn", &logBuf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success despite close error", report.Outcome)
	}
	if !strings.Contains(logBuf.String(), "sink close failed") {
		t.Error("close failure was not logged")
	}
}

func TestExecute_SecondaryPersistenceFailureKeepsSuccess(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(&sink.Stub{}),
		Archive:   failingArchive(t),
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success despite artifact failures", report.Outcome)
	}
	if len(report.ArtifactPaths) != 0 {
		t.Errorf("artifact paths = %v, want none", report.ArtifactPaths)
	}
	snap := collector.Snapshot()
	if snap.ArchiveWriteFailure == 0 {
		t.Error("archive write failures not counted")
	}
	if snap.RunsSucceeded != 1 {
		t.Errorf("runs succeeded = %d, want 1", snap.RunsSucceeded)
	}
}

func TestExecute_NotifyFailureKeepsOutcome(t *testing.T) {
	collector := metrics.NewCollector("postgres", "memory")
	adapterStub := &adapter.Stub{PublishErr: errors.New("webhook down")}

	config := &Config{
		RunMeta:   testMeta(),
		Extractor: &source.Stub{Records: rawRecords()},
		Connector: stubConnector(&sink.Stub{}),
		Adapters:  adapterStub,
		Collector: collector,
		Now:       func() time.Time { return testTime },
	}

	o, err := New(config, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := o.Execute(t.Context())

	if report.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success despite notify failure", report.Outcome)
	}
	if snap := collector.Snapshot(); snap.NotifyFailure != 1 {
		t.Errorf("notify failures = %d, want 1", snap.NotifyFailure)
	}
}

func TestNew_RejectsInvalidMeta(t *testing.T) {
	_, err := New(&Config{RunMeta: types.RunMeta{}}, quietLogger())
	if err == nil {
		t.Fatal("New accepted empty run metadata, want error")
	}

	_, err = New(&Config{RunMeta: types.RunMeta{RunID: "run-001", Trigger: "cron"}}, quietLogger())
	if err == nil {
		t.Fatal("New accepted unknown trigger, want error")
	}
}

func TestNew_DefaultsSource(t *testing.T) {
	config := &Config{RunMeta: testMeta()}
	if _, err := New(config, quietLogger()); err != nil {
		t.Fatalf("New: %v", err)
	}
	if config.Source != DefaultSource {
		t.Errorf("source = %q, want %q", config.Source, DefaultSource)
	}
}
