package catalog

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	modelColumn     = "Model"
	questionsColumn = "Selected_Questions"
	trainF1Column   = "Train_F1"
	testF1Column    = "Test_F1"
)

// ErrUnknownFormat is returned for sheet files that are neither xlsx nor csv.
var ErrUnknownFormat = errors.New("unknown sheet format")

// record is a sheet row keyed by header name.
type record map[string]string

// readSheet returns the rows of the first worksheet of an xlsx file or of a
// comma separated csv file, keyed by the header row.
func readSheet(path string) ([]record, error) {
	if path == "" {
		return nil, errors.New("sheet path required")
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "file: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening workbook: %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Errorf("workbook has no sheets: %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "error reading sheet %s in %s", sheets[0], path)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening file: %s", path)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing csv: %s", path)
	}
	return rows, nil
}

func toRecords(rows [][]string) []record {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = cleanHeader(h)
	}

	list := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		empty := true
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
				if rec[h] != "" {
					empty = false
				}
			}
		}
		if !empty {
			list = append(list, rec)
		}
	}
	return list
}

func cleanHeader(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "\ufeff"), `"`, ""))
}

// LoadFeatures reads the Model / Selected_Questions sheet. Question lists are
// comma separated; blank entries are dropped.
func LoadFeatures(path string) (map[string][]string, error) {
	recs, err := readSheet(path)
	if err != nil {
		return nil, err
	}

	m := make(map[string][]string, len(recs))
	for _, r := range recs {
		name := r[modelColumn]
		if name == "" {
			slog.Debug("feature row without model name skipped", "path", path)
			continue
		}
		qs := []string{}
		for _, q := range strings.Split(r[questionsColumn], ",") {
			if q = strings.TrimSpace(q); q != "" {
				qs = append(qs, q)
			}
		}
		m[name] = qs
	}
	return m, nil
}

// LoadPerformance reads the Model / Train_F1 / Test_F1 sheet and returns the
// mean of the two F1 scores per model. A missing score counts as 0.
func LoadPerformance(path string) (map[string]float64, error) {
	recs, err := readSheet(path)
	if err != nil {
		return nil, err
	}

	m := make(map[string]float64, len(recs))
	for _, r := range recs {
		name := r[modelColumn]
		if name == "" {
			continue
		}
		train, err := parseScore(r[trainF1Column])
		if err != nil {
			return nil, errors.Wrapf(err, "model %s: invalid %s", name, trainF1Column)
		}
		test, err := parseScore(r[testF1Column])
		if err != nil {
			return nil, errors.Wrapf(err, "model %s: invalid %s", name, testF1Column)
		}
		m[name] = (train + test) / 2
	}
	return m, nil
}

func parseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
