package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/auth"
	"doacoes/internal/bulk"
	"doacoes/internal/importer"
	"doacoes/internal/wizard"
)

type importOptions struct {
	file     string
	perPage  int
	report   string
}

func readImportFile(path string) ([]internal.ImportItem, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return importer.ParseFile(filepath.Base(path), data)
}

func printItems(items []internal.ImportItem) {
	valid := 0
	for _, item := range items {
		status := "ok"
		if !item.IsValid {
			status = fmt.Sprintf("invalid: %v", item.ValidationErrors)
		} else {
			valid++
		}
		fmt.Printf("row=%d\t%s\t%s\t%s\t%d\t%s\n", item.RowIndex+1, item.Name, item.CategoryNameRaw, item.DonationType, item.TargetAmount, status)
	}
	fmt.Printf("%d rows, %d valid\n", len(items), valid)
}

// runImport drives the wizard end to end without interaction: unknown
// categories, invalid rows and rows without any photo candidate are
// excluded, and every remaining item takes its first photo candidate.
func (a *app) runImport(ctx context.Context, opts importOptions) error {
	items, err := readImportFile(opts.file)
	if err != nil {
		return err
	}

	session := wizard.NewSession(a.log, nil)
	if err := session.Load(items); err != nil {
		return err
	}

	index, err := a.catalog.CategoryIndex()
	if err != nil {
		return err
	}
	matched := session.SuggestCategories(index)
	a.log.Info("categories suggested", zap.Int("matched", matched), zap.Int("items", len(items)))

	for i, item := range session.State().Items {
		if !item.IsValid || item.CategoryID == nil {
			a.log.Warn("row excluded", zap.Int("row", item.RowIndex+1), zap.String("name", item.Name), zap.Strings("errors", item.ValidationErrors))
			session.Dispatch(wizard.ExcludeItem{Index: i})
		}
	}
	if err := session.Advance(wizard.StepReviewPhotos); err != nil {
		return err
	}

	gateway, err := a.photoGateway()
	if err != nil {
		return err
	}

	for _, f := range session.LoadPhotoOptions(ctx, gateway, opts.perPage) {
		fmt.Printf("row=%d photo search failed: %s (%s)\n", f.RowIndex+1, f.Message, f.Code)
	}
	for _, i := range session.State().Included() {
		item := session.State().Items[i]
		if len(item.PhotoOptions) == 0 {
			a.log.Warn("row excluded without photo", zap.Int("row", item.RowIndex+1), zap.String("name", item.Name))
			session.Dispatch(wizard.ExcludeItem{Index: i})
			continue
		}
		session.Dispatch(wizard.SelectPhoto{Index: i, URL: item.PhotoOptions[0].SrcLarge})
	}
	if len(session.State().Included()) == 0 {
		return fmt.Errorf("no row has a photo candidate; nothing to import")
	}
	if err := session.Advance(wizard.StepConfirm); err != nil {
		return err
	}

	orchestrator := bulk.NewOrchestrator(gateway, a.catalog, a.db, auth.ContextChecker{}, a.log)
	if err := session.Confirm(ctx, orchestrator); err != nil {
		return err
	}

	state := session.State()
	for _, r := range state.Results {
		if r.Success {
			fmt.Printf("row=%d\t%s\tcreated id=%s\n", r.RowIndex+1, r.Name, r.ProductID)
		} else {
			fmt.Printf("row=%d\t%s\tfailed: %s\n", r.RowIndex+1, r.Name, r.Error)
		}
	}

	report := opts.report
	if report == "" {
		report = filepath.Join(a.cfg.OutputDir, fmt.Sprintf("import-%s.xlsx", time.Now().Format("20060102-150405")))
	}
	if err := importer.ExportResultsToXLSX(state.Results, report); err != nil {
		return err
	}
	if runs, err := a.db.ListImportRuns(1); err == nil && len(runs) > 0 {
		if err := a.db.SetImportRunReport(runs[0].ID, report); err != nil {
			a.log.Warn("failed to attach report to import run", zap.Error(err))
		}
	}

	fmt.Printf("import done: %d/%d created, report=%s\n", state.Succeeded(), len(state.Results), report)
	return nil
}
