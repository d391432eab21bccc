// Package export writes standings to spreadsheets for the league organisers.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/xuri/excelize/v2"
)

const swissSheet = "Swiss"

var (
	swissHeader  = []interface{}{"Pos", "Team", "Division", "Played", "Won", "Drawn", "Lost", "Sets +/-", "Games +/-", "Points"}
	ladderHeader = []interface{}{"Rank", "Team", "On holiday", "Matches this month"}
)

// LadderSheet is one division's ladder, already ordered by rank.
type LadderSheet struct {
	Division league.Division
	Entrants []league.LadderEntrant
	AsOf     time.Time
}

// WriteStandings writes a workbook with the Swiss table, ordered as given, and
// one sheet per ladder division.
func WriteStandings(w io.Writer, swiss []league.Entrant, ladders []LadderSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", swissSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(swissSheet, "A1", &swissHeader); err != nil {
		return err
	}
	for i, e := range swiss {
		row := []interface{}{i + 1, e.Name, string(e.Division), e.MatchesPlayed, e.Wins, e.Draws, e.Losses, e.SetDiff(), e.GameDiff(), e.Points}
		if err := f.SetSheetRow(swissSheet, cell(i+2), &row); err != nil {
			return err
		}
	}

	for _, l := range ladders {
		sheet := "Ladder " + string(l.Division)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, "A1", &ladderHeader); err != nil {
			return err
		}
		for i, e := range l.Entrants {
			onHoliday := "no"
			if e.OnHoliday(l.AsOf) {
				onHoliday = "yes"
			}
			row := []interface{}{e.Rank, e.Name, onHoliday, e.MatchesThisPeriod}
			if err := f.SetSheetRow(sheet, cell(i+2), &row); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cell(row int) string {
	name, _ := excelize.CoordinatesToCellName(1, row)
	return name
}
