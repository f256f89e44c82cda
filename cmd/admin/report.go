package main

import (
	"fmt"

	"aiswo-backend/internal/chatbot"

	"github.com/xuri/excelize/v2"
)

const binsSheet = "bins"

var reportHeader = []interface{}{"ID", "Name", "Location", "Fill %", "Weight (kg)", "Tier", "Operator"}

// writeBinsReport saves one row per bin to an xlsx file. Absent readings are
// left blank rather than written as 0.
func writeBinsReport(path string, snap chatbot.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", binsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(binsSheet, "A1", &reportHeader); err != nil {
		return err
	}

	for i, b := range snap.Bins {
		operator := ""
		if op := snap.OperatorFor(b.ID); op != nil {
			operator = op.Name
		}
		row := []interface{}{b.ID, b.Label(), b.Location, nil, nil, chatbot.Tier(b), operator}
		if b.FillPercent != nil {
			row[3] = *b.FillPercent
		}
		if b.WeightKg != nil {
			row[4] = *b.WeightKg
		}
		if err := f.SetSheetRow(binsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
