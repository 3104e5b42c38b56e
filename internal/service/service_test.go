package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/xuri/excelize/v2"
)

func TestTemplateService_Catalogue(t *testing.T) {
	h := newTestHarness(t, true)

	catalogue := h.services.Template.Catalogue()
	if len(catalogue) != len(models.Modules) {
		t.Fatalf("Expected %d modules, got %d", len(models.Modules), len(catalogue))
	}

	inventory := catalogue[0]
	if inventory.Module != models.ModuleInventory {
		t.Fatalf("Expected inventory first, got %s", inventory.Module)
	}
	want := []string{"item_name", "reorder_point", "stock_level"}
	if fmt.Sprint(inventory.RequiredFields) != fmt.Sprint(want) {
		t.Errorf("Expected required %v, got %v", want, inventory.RequiredFields)
	}
	for _, f := range inventory.Fields {
		if f.Name == "unit" && len(f.Values) == 0 {
			t.Error("Expected enum values listed for unit")
		}
		if f.Columns[0] != f.Name {
			t.Errorf("Expected field name as first accepted column, got %v", f.Columns)
		}
	}
}

func TestTemplateService_CSV(t *testing.T) {
	h := newTestHarness(t, true)

	var buf bytes.Buffer
	if err := h.services.Template.WriteTemplate(&buf, models.ModuleAttendance, "csv"); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and example row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "employee_id,date,status") {
		t.Errorf("Unexpected header %q", lines[0])
	}
}

func TestTemplateService_XLSX(t *testing.T) {
	h := newTestHarness(t, true)

	var buf bytes.Buffer
	if err := h.services.Template.WriteTemplate(&buf, models.ModuleMachines, "xlsx"); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("template is not a workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Template" || sheets[1] != "Columns" {
		t.Errorf("Unexpected sheets %v", sheets)
	}
	header, _ := f.GetCellValue("Template", "A1")
	if header != "machine_name" {
		t.Errorf("Expected machine_name in A1, got %q", header)
	}
}

// The example row of every template must import cleanly
func TestTemplateService_ExamplesImport(t *testing.T) {
	for _, format := range []string{"csv", "xlsx"} {
		for _, m := range models.Modules {
			h := newTestHarness(t, false)

			var buf bytes.Buffer
			if err := h.services.Template.WriteTemplate(&buf, m, format); err != nil {
				t.Fatalf("WriteTemplate(%s, %s) failed: %v", m, format, err)
			}

			req := &models.ImportRequest{Module: m, FileName: "template." + format, DryRun: true}
			report, _, err := h.services.Import.Import(context.Background(), req, buf.Bytes())
			if err != nil {
				t.Fatalf("Import(%s, %s) failed: %v", m, format, err)
			}
			if report.TotalRows != 1 || report.SuccessCount != 1 {
				t.Errorf("%s %s template example rejected: %+v", m, format, report.Failures)
			}
		}
	}
}

func TestTemplateService_Errors(t *testing.T) {
	h := newTestHarness(t, true)
	var buf bytes.Buffer

	err := h.services.Template.WriteTemplate(&buf, models.ModuleInventory, "pdf")
	if !errors.Is(err, service.ErrUnsupportedTemplateFormat) {
		t.Errorf("Expected ErrUnsupportedTemplateFormat, got %v", err)
	}

	err = h.services.Template.WriteTemplate(&buf, models.Module("finance"), "csv")
	if !errors.Is(err, models.ErrUnsupportedModule) {
		t.Errorf("Expected ErrUnsupportedModule, got %v", err)
	}
}

func TestHistoryService_GetRun(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	h.runRepo.Create(ctx, &models.ImportRun{
		ID:           "run-123",
		Module:       models.ModuleInventory,
		Status:       models.RunStatusCompleted,
		TotalRows:    1000,
		SuccessCount: 950,
		FailureCount: 50,
	})
	failures := make([]models.RowFailure, 150)
	for i := range failures {
		failures[i] = models.RowFailure{Row: i + 1, Kind: models.OutcomeValidationFailure, Reasons: []string{"item_name"}}
	}
	h.runRepo.AddFailures(ctx, "run-123", failures)

	response, err := h.services.History.GetRun(ctx, "run-123")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(response.Failures) != 100 {
		t.Errorf("Expected failure preview of 100, got %d", len(response.Failures))
	}
	if response.FailureURL == "" {
		t.Error("Expected failure URL")
	}

	all, _ := h.services.History.GetRunFailures(ctx, "run-123")
	if len(all) != 150 {
		t.Errorf("Expected 150 failures, got %d", len(all))
	}

	missing, err := h.services.History.GetRun(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for unknown run, got %v, %v", missing, err)
	}
}

func TestHistoryService_IdempotencyKey(t *testing.T) {
	h := newTestHarness(t, true)
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.csv", IdempotencyKey: "key-42"}

	_, run, err := h.services.Import.Import(context.Background(), req, readTestdata(t, "inventory.csv"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	found, err := h.services.History.GetRunByIdempotencyKey(context.Background(), "key-42")
	if err != nil {
		t.Fatalf("GetRunByIdempotencyKey failed: %v", err)
	}
	if found == nil || found.ID != run.ID {
		t.Errorf("Expected run %s by key, got %v", run.ID, found)
	}
}

func TestProcessRun_MissingUploadAbortsRun(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()
	req := &models.ImportRequest{Module: models.ModuleMachines, FileName: "machines.csv"}

	run, err := h.services.Import.CreateImportRun(ctx, req, []byte("Machine,Status\nLathe 1,Running\n"))
	if err != nil {
		t.Fatalf("CreateImportRun failed: %v", err)
	}
	if err := os.Remove(run.FilePath); err != nil {
		t.Fatalf("Remove upload failed: %v", err)
	}

	if err := h.services.Import.ProcessRun(ctx, run); err == nil {
		t.Fatal("Expected ProcessRun to fail without the stored upload")
	}

	stored, _ := h.runRepo.GetByID(ctx, run.ID)
	if stored.Status != models.RunStatusAborted {
		t.Errorf("Expected aborted, got %s", stored.Status)
	}
	if stored.ErrorKind != service.ErrorKindInternal {
		t.Errorf("Expected internal error kind, got %q", stored.ErrorKind)
	}
	if h.recordRepo.Calls != 0 {
		t.Errorf("Expected no persisted rows, got %d", h.recordRepo.Calls)
	}
}

func TestImport_AbortedRunStoresFatalKind(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.txt", IdempotencyKey: "txt-1"}

	report, run, err := h.services.Import.Import(ctx, req, []byte("Item Name\nSteel\n"))
	if err == nil || report != nil {
		t.Fatalf("Expected a fatal error and no report, got report=%v err=%v", report, err)
	}
	if run == nil {
		t.Fatal("Expected a run for a keyed import")
	}

	found, err := h.services.History.GetRunByIdempotencyKey(ctx, "txt-1")
	if err != nil || found == nil {
		t.Fatalf("GetRunByIdempotencyKey failed: %v", err)
	}
	if found.Status != models.RunStatusAborted {
		t.Errorf("Expected aborted, got %s", found.Status)
	}
	if found.ErrorKind != "unsupported_format" {
		t.Errorf("Expected unsupported_format, got %q", found.ErrorKind)
	}
	if found.ErrorMessage != err.Error() {
		t.Errorf("Expected stored message %q, got %q", err.Error(), found.ErrorMessage)
	}

	if _, err := h.services.History.GetRunReport(ctx, found); err == nil {
		t.Error("Expected no report for an aborted run")
	}
}

func TestHistoryService_GetRunReportMatchesImport(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()
	req := &models.ImportRequest{Module: models.ModuleAttendance, FileName: "attendance.json", IdempotencyKey: "att-1"}

	report, _, err := h.services.Import.Import(ctx, req, readTestdata(t, "attendance.json"))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	run, err := h.services.History.GetRunByIdempotencyKey(ctx, "att-1")
	if err != nil || run == nil {
		t.Fatalf("GetRunByIdempotencyKey failed: %v", err)
	}
	replayed, err := h.services.History.GetRunReport(ctx, run)
	if err != nil {
		t.Fatalf("GetRunReport failed: %v", err)
	}

	if replayed.Module != report.Module || replayed.FileName != report.FileName {
		t.Errorf("Expected %s/%s, got %s/%s", report.Module, report.FileName, replayed.Module, replayed.FileName)
	}
	if replayed.TotalRows != report.TotalRows || replayed.SuccessCount != report.SuccessCount || replayed.FailureCount != report.FailureCount {
		t.Errorf("Counts differ: got %+v, want %+v", replayed, report)
	}
	if got := failureRows(replayed.Failures); !equalInts(got, failureRows(report.Failures)) {
		t.Errorf("Expected failure rows %v, got %v", failureRows(report.Failures), got)
	}
}

func TestDecoderErrorsAreFatal(t *testing.T) {
	h := newTestHarness(t, false)
	req := &models.ImportRequest{Module: models.ModuleInventory, FileName: "inventory.json"}

	_, _, err := h.services.Import.Import(context.Background(), req, []byte(`{"rows": []}`))
	var decodeErr *decoder.Error
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *decoder.Error, got %v", err)
	}
	if decodeErr.KindName() != "malformed_file" {
		t.Errorf("Expected malformed_file, got %s", decodeErr.KindName())
	}
}
