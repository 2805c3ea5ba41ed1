package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
)

// ReadChecklistCSVFile opens path and parses it with ReadChecklistCSV.
func ReadChecklistCSVFile(path string) ([]dto.ChecklistRowDTO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checklist source: %w", err)
	}
	defer f.Close()

	return ReadChecklistCSV(f)
}

// ReadChecklistCSV parses rows of alias,key,owner,description. The first line is a header.
func ReadChecklistCSV(r io.Reader) ([]dto.ChecklistRowDTO, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("checklist source is empty")
		}
		return nil, fmt.Errorf("failed to read checklist header: %w", err)
	}

	var rows []dto.ChecklistRowDTO
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read checklist source: %w", err)
		}
		if len(record) < 2 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("checklist line %d: expected at least alias and key", line)
		}

		row := dto.ChecklistRowDTO{
			Alias: strings.TrimSpace(record[0]),
			Key:   strings.TrimSpace(record[1]),
		}
		if len(record) > 2 {
			row.Owner = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			// Descriptions may contain unquoted commas
			row.Description = strings.TrimSpace(strings.Join(record[3:], ","))
		}
		rows = append(rows, row)
	}

	return rows, nil
}
