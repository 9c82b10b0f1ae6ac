package services

import (
	"fmt"
	"time"

	"gridx-backend/models"
	"gridx-backend/utils"

	"github.com/xuri/excelize/v2"
)

const (
	StatementSheet       = "Statement"
	StatementContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BuildStatement renders a contract summary followed by its payments.
// The caller owns the returned file and must Close it.
func BuildStatement(contract *models.SolarContract, payments []models.Payment, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(StatementSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create statement sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Contract", contract.ID},
		{"Monthly payment", contract.MonthlyPayment.InexactFloat64()},
		{"Total cost", contract.TotalCost.InexactFloat64()},
		{"Payments made", contract.PaymentsMade.InexactFloat64()},
		{"Remaining", contract.Remaining().InexactFloat64()},
		{"Active", contract.IsActive},
		{"Generated", generated.Format(time.RFC3339)},
	}
	if contract.System != nil {
		summary = append(summary,
			[]interface{}{"Capacity (kW)", contract.System.CapacityKW.InexactFloat64()},
			[]interface{}{"Components", contract.System.Components})
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(StatementSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write statement summary: %w", err)
		}
	}

	headerRow := len(summary) + 2
	table := [][]interface{}{{"Date", "Method", "Amount", "Reference"}}
	for _, p := range payments {
		table = append(table, []interface{}{
			p.PaymentDate.UTC().Format(utils.DateLayout),
			p.PaymentMethod,
			p.Amount.InexactFloat64(),
			p.Reference.String(),
		})
	}
	for i, row := range table {
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+i)
		if err := f.SetSheetRow(StatementSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write statement payments: %w", err)
		}
	}
	return f, nil
}
