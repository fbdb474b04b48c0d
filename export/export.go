package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/scheduling"
	"github.com/xuri/excelize/v2"
)

const (
	ScheduleSheet = "Schedule"
	MatchesSheet  = "Matches"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Generate builds a workbook with a court grid sheet and a flat match list.
func Generate(s scheduling.Schedule) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}
	if err := writeScheduleSheet(f, s); err != nil {
		return nil, fmt.Errorf("writing schedule sheet: %w", err)
	}
	if err := writeMatchesSheet(f, s); err != nil {
		return nil, fmt.Errorf("writing matches sheet: %w", err)
	}
	return f, nil
}

// Bytes renders the workbook as an .xlsx document.
func Bytes(s scheduling.Schedule) ([]byte, error) {
	f, err := Generate(s)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name used for a tournament's schedule.
func FileName(tournamentID int, generatedAt time.Time) string {
	return fmt.Sprintf("tournament-%d-schedule-%s.xlsx", tournamentID, generatedAt.UTC().Format("20060102-150405"))
}

func writeScheduleSheet(f *excelize.File, s scheduling.Schedule) error {
	courts := s.Constraints.Courts()

	headers := []string{"Time"}
	for _, c := range courts {
		headers = append(headers, c.Name)
	}
	for i, h := range headers {
		if err := f.SetCellValue(ScheduleSheet, cellRef(i+1, 1), h); err != nil {
			return err
		}
	}
	if err := styleHeader(f, ScheduleSheet, len(headers)); err != nil {
		return err
	}

	var starts []time.Time
	seen := make(map[time.Time]bool)
	for _, slot := range s.Slots {
		if !seen[slot.Start] {
			seen[slot.Start] = true
			starts = append(starts, slot.Start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	rowOf := make(map[time.Time]int, len(starts))
	for i, t := range starts {
		row := i + 2
		rowOf[t] = row
		if err := f.SetCellValue(ScheduleSheet, cellRef(1, row), t.Format("15:04")); err != nil {
			return err
		}
	}

	for _, slot := range s.Slots {
		if slot.CourtNumber < 1 || slot.CourtNumber > len(courts) {
			continue
		}
		if err := f.SetCellValue(ScheduleSheet, cellRef(slot.CourtNumber+1, rowOf[slot.Start]), slotLabel(slot)); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(ScheduleSheet, "A", "A", 10); err != nil {
		return err
	}
	if len(courts) > 0 {
		return f.SetColWidth(ScheduleSheet, colLetter(2), colLetter(len(courts)+1), 32)
	}
	return nil
}

func writeMatchesSheet(f *excelize.File, s scheduling.Schedule) error {
	if _, err := f.NewSheet(MatchesSheet); err != nil {
		return err
	}

	headers := []string{"Match", "Round", "Court", "Start", "End", "Participant 1", "Participant 2"}
	for i, h := range headers {
		if err := f.SetCellValue(MatchesSheet, cellRef(i+1, 1), h); err != nil {
			return err
		}
	}
	if err := styleHeader(f, MatchesSheet, len(headers)); err != nil {
		return err
	}

	row := 2
	for _, slot := range s.Slots {
		if !slot.IsMatch() {
			continue
		}
		values := []any{
			*slot.MatchID,
			slot.RoundLabel,
			slot.CourtName,
			slot.Start.Format("15:04"),
			slot.End.Format("15:04"),
			participantLabel(slot.Participant1ID),
			participantLabel(slot.Participant2ID),
		}
		for i, v := range values {
			if err := f.SetCellValue(MatchesSheet, cellRef(i+1, row), v); err != nil {
				return err
			}
		}
		row++
	}
	return f.SetColWidth(MatchesSheet, "B", "C", 20)
}

func styleHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cellRef(1, 1), cellRef(columns, 1), style)
}

func slotLabel(s models.ScheduleSlot) string {
	switch {
	case s.IsLunchBreak:
		return "Lunch"
	case !s.IsMatch():
		return "Break"
	}
	return fmt.Sprintf("M%d %s: %s vs %s", *s.MatchID, s.RoundLabel,
		participantLabel(s.Participant1ID), participantLabel(s.Participant2ID))
}

func participantLabel(id *int) string {
	if id == nil {
		return "TBD"
	}
	return fmt.Sprintf("#%d", *id)
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
