package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/mocks"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/rs/zerolog"
)

// testdataPath returns the absolute path to a file in the testdata directory.
func testdataPath(t testing.TB, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

func readTestdata(t testing.TB, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(testdataPath(t, filename))
	if err != nil {
		t.Fatalf("read %s: %v", filename, err)
	}
	return data
}

type testHarness struct {
	services   *service.Services
	recordRepo *mocks.MockRecordRepository
	runRepo    *mocks.MockImportRunRepository
	cfg        *config.Config
}

func newTestHarness(t *testing.T, history bool) *testHarness {
	t.Helper()

	recordRepo := mocks.NewMockRecordRepository()
	runRepo := mocks.NewMockImportRunRepository()

	repos := &repository.Repositories{
		Record: recordRepo,
		Run:    runRepo,
	}

	cfg := &config.Config{
		Import: config.ImportConfig{
			MaxUploadSize: 10 * 1024 * 1024,
			UploadDir:     t.TempDir(),
			History:       history,
			PollInterval:  10 * time.Millisecond,
			MaxWorkers:    2,
		},
	}

	services := service.NewServices(repos, cfg, zerolog.Nop())

	return &testHarness{
		services:   services,
		recordRepo: recordRepo,
		runRepo:    runRepo,
		cfg:        cfg,
	}
}

func failureRows(failures []models.RowFailure) []int {
	rows := make([]int, len(failures))
	for i, f := range failures {
		rows[i] = f.Row
	}
	return rows
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Synchronous imports ---

func TestImport_InventoryCSV(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.csv"}

	report, run, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if report.TotalRows != 5 {
		t.Errorf("Expected 5 rows (blank line skipped), got %d", report.TotalRows)
	}
	if report.SuccessCount != 3 {
		t.Errorf("Expected 3 successes, got %d", report.SuccessCount)
	}
	if got := failureRows(report.Failures); !equalInts(got, []int{3, 4}) {
		t.Errorf("Expected failures on rows [3 4], got %v", got)
	}

	if run == nil {
		t.Fatal("Expected run to be recorded")
	}
	stored, _ := h.runRepo.GetByID(context.Background(), run.ID)
	if stored.Status != models.RunStatusCompleted {
		t.Errorf("Expected completed run, got %s", stored.Status)
	}
	if stored.TotalRows != 5 || stored.FailureCount != 2 {
		t.Errorf("Run counts not applied: %+v", stored)
	}
	if len(h.runRepo.Failures[run.ID]) != 2 {
		t.Errorf("Expected 2 stored failures, got %d", len(h.runRepo.Failures[run.ID]))
	}

	count, _ := h.recordRepo.Count(context.Background(), models.ModuleInventory)
	if count != 3 {
		t.Errorf("Expected 3 stored items, got %d", count)
	}
}

func TestImport_AttendanceJSON(t *testing.T) {
	h := newTestHarness(t, false)
	req := &models.ImportRequest{Module: models.ModuleAttendance, FileName: "attendance.json"}

	report, run, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "attendance.json"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if run != nil {
		t.Error("Expected no run with history disabled")
	}

	if report.TotalRows != 6 || report.SuccessCount != 4 {
		t.Errorf("Expected 6 rows / 4 successes, got %d / %d", report.TotalRows, report.SuccessCount)
	}
	if got := failureRows(report.Failures); !equalInts(got, []int{4, 5}) {
		t.Errorf("Expected failures on rows [4 5], got %v", got)
	}
	if report.Failures[1].Reasons[0] != "date" {
		t.Errorf("Expected unparseable date reported as date, got %v", report.Failures[1].Reasons)
	}

	night := h.recordRepo.Tables[models.ModuleAttendance]["E1005, 2024-03-01"]
	if night == nil {
		t.Fatal("Expected overnight record stored")
	}
	if night.Record["status"] != "Night" {
		t.Errorf("Expected unrecognized status passed through, got %v", night.Record["status"])
	}
	if hours := night.Record["hours_worked"]; hours == nil || hours.(interface{ String() string }).String() != "8" {
		t.Errorf("Expected 8 hours worked overnight, got %v", hours)
	}
}

func TestImport_ProductionCreateOnly(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleProduction, FileName: "production.csv"}

	report, _, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "production.csv"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if report.SuccessCount != 2 {
		t.Errorf("Expected 2 successes, got %d", report.SuccessCount)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d", len(report.Failures))
	}
	if report.Failures[1].Kind != models.OutcomePersistenceFailure {
		t.Errorf("Expected repeated order number to conflict, got %s", report.Failures[1].Kind)
	}

	order := h.recordRepo.Tables[models.ModuleProduction]["WO-1003"]
	if order.Record["priority"] != "medium" || order.Record["status"] != "planned" {
		t.Errorf("Expected defaults applied, got %v", order.Record)
	}
}

func TestImport_DryRun(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.csv", DryRun: true}

	report, run, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !report.DryRun || !run.DryRun {
		t.Error("Expected dry run flagged on report and run")
	}
	if h.recordRepo.Calls != 0 {
		t.Errorf("Expected no persistence calls, got %d", h.recordRepo.Calls)
	}
}

func TestImport_UnsupportedFormatAbortsRun(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleAttendance, FileName: "attendance.txt"}

	report, run, err := h.services.Import.Import(context.Background(), req, []byte("employee_id\nE1\n"))
	if !errors.Is(err, decoder.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if report != nil {
		t.Error("Expected no report for aborted import")
	}

	stored, _ := h.runRepo.GetByID(context.Background(), run.ID)
	if stored.Status != models.RunStatusAborted {
		t.Errorf("Expected aborted run, got %s", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Error("Expected error message on aborted run")
	}
}

func TestImport_IdempotencyKeyRequiresHistory(t *testing.T) {
	h := newTestHarness(t, false)
	h.runRepo.CreateError = errors.New("db down")

	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.csv", IdempotencyKey: "key-1"}
	_, _, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err == nil {
		t.Fatal("Expected error when keyed run cannot be recorded")
	}
	if h.recordRepo.Calls != 0 {
		t.Error("Expected no rows persisted")
	}
}

func TestImport_HistoryFailureDoesNotBlockImport(t *testing.T) {
	h := newTestHarness(t, true)
	h.runRepo.CreateError = errors.New("db down")

	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.csv"}
	report, run, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if run != nil {
		t.Error("Expected no run when it could not be recorded")
	}
	if report.SuccessCount != 3 {
		t.Errorf("Expected 3 successes, got %d", report.SuccessCount)
	}
}

// --- Asynchronous runs ---

func TestCreateImportRun_StoresUpload(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "Inventory.CSV"}

	run, err := h.services.Import.CreateImportRun(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err != nil {
		t.Fatalf("CreateImportRun failed: %v", err)
	}
	if run.Status != models.RunStatusPending {
		t.Errorf("Expected pending run, got %s", run.Status)
	}
	if filepath.Dir(run.FilePath) != h.cfg.Import.UploadDir || filepath.Ext(run.FilePath) != ".csv" {
		t.Errorf("Unexpected upload path %s", run.FilePath)
	}
	if _, err := os.Stat(run.FilePath); err != nil {
		t.Errorf("Upload not stored: %v", err)
	}

	if err := h.services.Import.ProcessRun(context.Background(), run); err != nil {
		t.Fatalf("ProcessRun failed: %v", err)
	}
	stored, _ := h.runRepo.GetByID(context.Background(), run.ID)
	if stored.Status != models.RunStatusCompleted || stored.SuccessCount != 3 {
		t.Errorf("Unexpected run after processing: %+v", stored)
	}
	if _, err := os.Stat(run.FilePath); !os.IsNotExist(err) {
		t.Error("Expected stored upload removed after processing")
	}
}

func TestCreateImportRun_RejectsBeforeQueueing(t *testing.T) {
	h := newTestHarness(t, true)

	_, err := h.services.Import.CreateImportRun(context.Background(),
		&models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.txt"}, []byte("x"))
	if !errors.Is(err, decoder.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = h.services.Import.CreateImportRun(context.Background(),
		&models.ImportRequest{Module: models.Module("finance"), FileName: "ledger.csv"}, []byte("x"))
	if !errors.Is(err, models.ErrUnsupportedModule) {
		t.Errorf("Expected ErrUnsupportedModule, got %v", err)
	}

	if len(h.runRepo.Runs) != 0 {
		t.Errorf("Expected no runs queued, got %d", len(h.runRepo.Runs))
	}
}

func TestProcessRun_MissingUploadAborts(t *testing.T) {
	h := newTestHarness(t, true)
	run := &models.ImportRun{
		ID:       "run-missing",
		Module:   models.ModuleInventory,
		FileName: "inventory.csv",
		Status:   models.RunStatusPending,
		FilePath: filepath.Join(h.cfg.Import.UploadDir, "gone.csv"),
	}
	h.runRepo.Create(context.Background(), run)

	if err := h.services.Import.ProcessRun(context.Background(), run); err == nil {
		t.Fatal("Expected error for missing upload")
	}
	if h.runRepo.StatusOf(run.ID) != models.RunStatusAborted {
		t.Errorf("Expected aborted run, got %s", h.runRepo.StatusOf(run.ID))
	}
}

func TestHistoryProcessor_RunsQueuedImports(t *testing.T) {
	h := newTestHarness(t, true)

	run, err := h.services.Import.CreateImportRun(context.Background(),
		&models.ImportRequest{Module: models.ModuleProduction, FileName: "production.csv"},
		readTestdata(t, "production.csv"))
	if err != nil {
		t.Fatalf("CreateImportRun failed: %v", err)
	}

	go h.services.History.StartProcessor(context.Background())
	defer h.services.History.StopProcessor()

	deadline := time.Now().Add(5 * time.Second)
	for h.runRepo.StatusOf(run.ID) != models.RunStatusCompleted {
		if time.Now().After(deadline) {
			t.Fatalf("run not completed, status %s", h.runRepo.StatusOf(run.ID))
		}
		time.Sleep(10 * time.Millisecond)
	}

	response, err := h.services.History.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if response.SuccessCount != 2 || len(response.Failures) != 2 {
		t.Errorf("Unexpected run response: %+v", response)
	}
	if response.FailureURL != "/v1/imports/runs/"+run.ID+"/failures" {
		t.Errorf("Unexpected failure URL %q", response.FailureURL)
	}
}
