package data

import (
	"database/sql"
	"log/slog"
	"sort"

	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
)

const (
	deleteQuestionsSQL = `DELETE FROM question`
	deleteModelsSQL    = `DELETE FROM model`
	deleteFeaturesSQL  = `DELETE FROM feature`
	deleteWeightsSQL   = `DELETE FROM weight`
	deletePoolSQL      = `DELETE FROM final_pool`

	insertQuestionSQL = `INSERT INTO question (id, position, text, expected) VALUES (?, ?, ?, ?)`
	insertModelSQL    = `INSERT INTO model (name) VALUES (?)`
	insertFeatureSQL  = `INSERT INTO feature (model, position, question) VALUES (?, ?, ?)`
	insertWeightSQL   = `INSERT INTO weight (model, weight) VALUES (?, ?)`
	insertPoolSQL     = `INSERT INTO final_pool (position, question) VALUES (?, ?)`

	selectQuestionsSQL = `SELECT id, text, expected FROM question ORDER BY position`
	selectModelsSQL    = `SELECT name FROM model ORDER BY name`
	selectFeaturesSQL  = `SELECT model, question FROM feature ORDER BY model, position`
	selectWeightsSQL   = `SELECT model, weight FROM weight`
	selectPoolSQL      = `SELECT question FROM final_pool ORDER BY position`
)

var clearCatalogSQL = []string{
	deleteQuestionsSQL,
	deleteModelsSQL,
	deleteFeaturesSQL,
	deleteWeightsSQL,
	deletePoolSQL,
}

// ImportSummary reports what SaveCatalog stored.
type ImportSummary struct {
	Questions int `json:"questions" yaml:"questions"`
	Models    int `json:"models" yaml:"models"`
	Features  int `json:"features" yaml:"features"`
	Weights   int `json:"weights" yaml:"weights"`
	FinalPool int `json:"final_pool" yaml:"final_pool"`
}

// SaveCatalog replaces the stored catalog with c in a single transaction.
func SaveCatalog(db *sql.DB, c *catalog.Catalog) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if c == nil {
		return nil, errors.New("catalog required")
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	sum, err := saveCatalog(db, tx, c)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return nil, errors.Wrapf(rbErr, "failed to rollback transaction: %v", err)
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	slog.Debug("catalog saved",
		"questions", sum.Questions,
		"models", sum.Models,
		"features", sum.Features,
		"weights", sum.Weights,
		"final_pool", sum.FinalPool)

	return sum, nil
}

func saveCatalog(db *sql.DB, tx *sql.Tx, c *catalog.Catalog) (*ImportSummary, error) {
	for _, q := range clearCatalogSQL {
		if _, err := tx.Exec(q); err != nil {
			return nil, errors.Wrapf(err, "failed to clear catalog: %s", q)
		}
	}

	sum := &ImportSummary{}

	qStmt, err := tx.Prepare(rebind(db, insertQuestionSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare question statement")
	}
	defer qStmt.Close()
	for i, q := range c.Questions {
		if _, err := qStmt.Exec(q.ID, i, q.Text, string(q.Expected)); err != nil {
			return nil, errors.Wrapf(err, "failed to insert question: %s", q.ID)
		}
		sum.Questions++
	}

	// Models are stored on their own so one with an empty feature list
	// survives the round trip.
	mStmt, err := tx.Prepare(rebind(db, insertModelSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare model statement")
	}
	defer mStmt.Close()

	fStmt, err := tx.Prepare(rebind(db, insertFeatureSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare feature statement")
	}
	defer fStmt.Close()
	for _, model := range sortedKeys(c.Features) {
		if _, err := mStmt.Exec(model); err != nil {
			return nil, errors.Wrapf(err, "failed to insert model: %s", model)
		}
		for i, q := range c.Features[model] {
			if _, err := fStmt.Exec(model, i, q); err != nil {
				return nil, errors.Wrapf(err, "failed to insert feature %s of %s", q, model)
			}
			sum.Features++
		}
		sum.Models++
	}

	wStmt, err := tx.Prepare(rebind(db, insertWeightSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare weight statement")
	}
	defer wStmt.Close()
	for _, model := range sortedKeys(c.Weights) {
		if _, err := wStmt.Exec(model, c.Weights[model]); err != nil {
			return nil, errors.Wrapf(err, "failed to insert weight: %s", model)
		}
		sum.Weights++
	}

	pStmt, err := tx.Prepare(rebind(db, insertPoolSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare final pool statement")
	}
	defer pStmt.Close()
	for i, q := range c.FinalPool {
		if _, err := pStmt.Exec(i, q); err != nil {
			return nil, errors.Wrapf(err, "failed to insert final pool question: %s", q)
		}
		sum.FinalPool++
	}

	return sum, nil
}

// Clear deletes the stored catalog.
func Clear(db *sql.DB) error {
	if db == nil {
		return errDBNotInitialized
	}
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	for _, q := range clearCatalogSQL {
		if _, err := tx.Exec(q); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to clear catalog: %s", q)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// LoadCatalog reads the stored catalog. An empty store yields an empty,
// non-nil catalog.
func LoadCatalog(db *sql.DB) (*catalog.Catalog, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	c := &catalog.Catalog{
		Questions: make([]*catalog.Question, 0),
		Features:  make(map[string][]string),
		Weights:   make(map[string]float64),
		FinalPool: make([]string, 0),
	}

	rows, err := db.Query(selectQuestionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query questions")
	}
	for rows.Next() {
		q := &catalog.Question{}
		var expected string
		if err := rows.Scan(&q.ID, &q.Text, &expected); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan question")
		}
		q.Expected = score.Answer(expected)
		c.Questions = append(c.Questions, q)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.Query(selectModelsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query models")
	}
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan model")
		}
		c.Features[model] = []string{}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.Query(selectFeaturesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query features")
	}
	for rows.Next() {
		var model, q string
		if err := rows.Scan(&model, &q); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan feature")
		}
		c.Features[model] = append(c.Features[model], q)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.Query(selectWeightsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query weights")
	}
	for rows.Next() {
		var model string
		var w float64
		if err := rows.Scan(&model, &w); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan weight")
		}
		c.Weights[model] = w
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.Query(selectPoolSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query final pool")
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan final pool question")
		}
		c.FinalPool = append(c.FinalPool, q)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return c, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return errors.Wrap(err, "failed to iterate rows")
	}
	return rows.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
