package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	standingsSheet = "Standings"
	breakdownSheet = "Breakdown"
)

var (
	standingsHeader = []interface{}{"Rank", "Color", "Total", "Gold", "Silver", "Bronze", "Played", "Wins", "Draws", "Losses"}
	breakdownHeader = []interface{}{"Color", "Sport", "Event", "Rank", "Points"}
)

// ExportStandingsXLSX renders the current standings and every color's per-event
// breakdown as an xlsx workbook
func (s *StandingsService) ExportStandingsXLSX(ctx context.Context) ([]byte, error) {
	standings, err := s.ComputeStandings(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), standingsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return nil, err
	}

	if err := setRow(f, standingsSheet, 1, standingsHeader); err != nil {
		return nil, err
	}
	for i, st := range standings {
		row := []interface{}{st.Rank, st.Name, st.TotalScore, st.Gold, st.Silver, st.Bronze, st.Played, st.Wins, st.Draws, st.Losses}
		if err := setRow(f, standingsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, breakdownSheet, 1, breakdownHeader); err != nil {
		return nil, err
	}
	next := 2
	for _, st := range standings {
		rows, err := s.repo.ColorBreakdown(ctx, st.ColorID)
		if err != nil {
			return nil, fmt.Errorf("breakdown for color %d: %w", st.ColorID, err)
		}
		for _, b := range rows {
			if err := setRow(f, breakdownSheet, next, []interface{}{st.Name, b.SportName, b.EventName, b.Rank, b.Points}); err != nil {
				return nil, err
			}
			next++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, axis, &cells)
}
