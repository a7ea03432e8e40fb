package executor

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
)

// ParseDelimited splits remote command output into result sets.
//
// Each set starts with a header line naming the columns; a blank line ends
// the set. Tab separates fields unless action is CSV, which uses RFC 4180
// quoting. Rows shorter than the header are padded with NULLs; longer rows
// are an error.
func ParseDelimited(out []byte, action string) ([]domain.ResultSet, error) {
	var sets []domain.ResultSet
	for i, block := range splitBlocks(out) {
		var (
			records [][]string
			err     error
		)
		if action == domain.ActionCSV {
			records, err = readCSV(block)
		} else {
			records = readTSV(block)
		}
		if err != nil {
			return nil, fmt.Errorf("result set %d: %w", i+1, err)
		}

		set, err := toResultSet(records)
		if err != nil {
			return nil, fmt.Errorf("result set %d: %w", i+1, err)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func splitBlocks(out []byte) [][]byte {
	var (
		blocks  [][]byte
		current bytes.Buffer
	)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				blocks = append(blocks, append([]byte(nil), current.Bytes()...))
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.Bytes())
	}
	return blocks
}

func readTSV(block []byte) [][]string {
	lines := strings.Split(strings.TrimSuffix(string(block), "\n"), "\n")
	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, "\t")
	}
	return records
}

func readCSV(block []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(block))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func toResultSet(records [][]string) (domain.ResultSet, error) {
	if len(records) == 0 {
		return domain.ResultSet{}, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	set := domain.ResultSet{Columns: header, Rows: make([][]interface{}, 0, len(records)-1)}
	for n, record := range records[1:] {
		if len(record) > len(header) {
			return domain.ResultSet{}, fmt.Errorf("row %d has %d fields, header has %d", n+1, len(record), len(header))
		}
		row := make([]interface{}, len(header))
		for i, v := range record {
			row[i] = v
		}
		set.Rows = append(set.Rows, row)
	}
	return set, nil
}
