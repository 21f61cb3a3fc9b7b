package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/opencotacao/award-engine/internal/models"
)

// AwardWriter renders award decisions as spreadsheets. It is one
// implementation of the document-generator collaborator: the engine hands it
// a finished decision and never formats anything itself.
type AwardWriter struct{}

// NewAwardWriter creates a new AwardWriter.
func NewAwardWriter() *AwardWriter {
	return &AwardWriter{}
}

const awardSheet = "Award"

// WriteAward writes the decision and its breakdown as an XLSX workbook.
func (aw *AwardWriter) WriteAward(w io.Writer, selection *models.Selection, decision *models.AwardDecision) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(awardSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	header := [][]any{
		{"Selection", selection.ID},
		{"Quotation", selection.QuotationID},
		{"Criterion", string(selection.Criterion)},
		{"Source", string(decision.Source)},
		{"Decided at", decision.DecidedAt.Format("2006-01-02 15:04:05")},
	}
	if decision.SupplierID != nil {
		header = append(header, []any{"Winner", *decision.SupplierID})
	}
	if decision.Value != nil {
		header = append(header, []any{"Value", decision.Value.String()})
	}
	for i, row := range header {
		if err := f.SetSheetRow(awardSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	if len(decision.Breakdown) > 0 {
		start := len(header) + 2
		title := []any{"Scope", "Scope ID", "Supplier", "Value"}
		if err := f.SetSheetRow(awardSheet, fmt.Sprintf("A%d", start), &title); err != nil {
			return err
		}
		for i, line := range decision.Breakdown {
			row := []any{string(line.Scope), line.ScopeID, line.SupplierID, line.Value.String()}
			if err := f.SetSheetRow(awardSheet, fmt.Sprintf("A%d", start+1+i), &row); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
