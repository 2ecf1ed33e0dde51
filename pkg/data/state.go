package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

var (
	stateQueries = map[string]string{
		"question":   "SELECT COUNT(*) FROM question",
		"model":      "SELECT COUNT(*) FROM model",
		"feature":    "SELECT COUNT(*) FROM feature",
		"weight":     "SELECT COUNT(*) FROM weight",
		"final_pool": "SELECT COUNT(*) FROM final_pool",
	}
)

// GetDataState returns the row counts of the catalog tables.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64)
	for k, v := range stateQueries {
		stmt, err := db.Prepare(v)
		if err != nil {
			return nil, errors.Wrapf(err, "error preparing %s statement", k)
		}

		count, err := getCount(stmt)
		stmt.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "error getting %s count", k)
		}
		state[k] = count
	}

	return state, nil
}

// IsEmpty reports whether neither questions nor models have been imported.
func IsEmpty(db *sql.DB) (bool, error) {
	state, err := GetDataState(db)
	if err != nil {
		return false, err
	}
	return state["question"] == 0 && state["model"] == 0, nil
}

func getCount(stmt *sql.Stmt) (int64, error) {
	var count int64
	if err := stmt.QueryRow().Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to scan row")
	}
	return count, nil
}
