// Package excel renders aggregate tables into an .xlsx workbook. The
// workbook is the hand-off surface to the report renderer, which is an
// external collaborator; nothing here decides what the figures look
// like.
package excel

import (
	"fmt"

	"impactsim/internal"
	"impactsim/internal/agg"
	apperrors "impactsim/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Report bundles the aggregate tables one sweep produces.
type Report struct {
	Rejection map[agg.GroupKey]*agg.AggregateStatistic
	Coverage  map[agg.GroupKey]*agg.AggregateStatistic
	Pointwise map[agg.GroupKey][]agg.PointError
}

// SummaryWriter writes aggregate reports as workbooks.
type SummaryWriter struct {
	log *internal.Logger
}

// NewSummaryWriter creates a summary writer.
func NewSummaryWriter() *SummaryWriter {
	return &SummaryWriter{log: internal.DefaultLogger.Named("excel")}
}

// Write renders the report to an .xlsx file at path.
func (w *SummaryWriter) Write(path string, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(report.Rejection) > 0 {
		if err := w.writeProportions(f, "Rejection", report.Rejection); err != nil {
			return err
		}
	}
	if len(report.Coverage) > 0 {
		if err := w.writeProportions(f, "Coverage", report.Coverage); err != nil {
			return err
		}
	}
	if len(report.Pointwise) > 0 {
		if err := w.writePointwise(f, report.Pointwise); err != nil {
			return err
		}
	}

	// Drop the default empty sheet left by excelize.
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return apperrors.ExportError("failed to save workbook "+path, err)
	}
	w.log.Info("wrote summary workbook %s", path)
	return nil
}

var proportionHeader = []string{
	"group", "n", "successes",
	"bayes_mean", "bayes_lower", "bayes_upper",
	"mle", "wald_lower", "wald_upper",
}

func (w *SummaryWriter) writeProportions(f *excelize.File, sheet string, table map[agg.GroupKey]*agg.AggregateStatistic) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.ExportError("failed to create sheet "+sheet, err)
	}
	if err := w.writeRow(f, sheet, 1, toAny(proportionHeader)); err != nil {
		return err
	}

	for i, key := range agg.SortedKeys(table) {
		st := table[key]
		row := []interface{}{
			string(st.Key), st.N, st.Successes,
			st.Bayes.Point, st.Bayes.Lower, st.Bayes.Upper,
			st.Freq.Point, st.Freq.Lower, st.Freq.Upper,
		}
		if err := w.writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *SummaryWriter) writePointwise(f *excelize.File, table map[agg.GroupKey][]agg.PointError) error {
	const sheet = "Pointwise"
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.ExportError("failed to create sheet "+sheet, err)
	}
	header := []string{"group", "t", "n", "mape", "lower", "upper"}
	if err := w.writeRow(f, sheet, 1, toAny(header)); err != nil {
		return err
	}

	rowIdx := 2
	for _, key := range agg.SortedKeys(table) {
		for _, pt := range table[key] {
			row := []interface{}{string(key), pt.T, pt.N, pt.MAPE, pt.Lower, pt.Upper}
			if err := w.writeRow(f, sheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func (w *SummaryWriter) writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return apperrors.ExportError("failed to address cell", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return apperrors.ExportError(fmt.Sprintf("failed to write %s!%s", sheet, cell), err)
		}
	}
	return nil
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
