package cli

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/nsctl/pkg/questionnaire"
	"github.com/pkg/errors"
)

const maxAnswersBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	}
}

func questionsAPIHandler(s *scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, questionItems(s.catalog))
	}
}

func randomAnswersAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seed uint64
		if v := r.URL.Query().Get("seed"); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid seed")
				return
			}
			seed = n
		}
		writeJSON(w, http.StatusOK, questionnaire.RandomFill(newRand(seed), questionnaire.Form()))
	}
}

func scoreAPIHandler(s *scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := make(map[string]string)
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnswersBytes)).Decode(&raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid answers payload")
			return
		}

		answers, err := questionnaire.Normalize(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.score(answers)
		if err != nil {
			if errors.Is(err, questionnaire.ErrUnknownQuestion) || errors.Is(err, questionnaire.ErrInvalidAnswer) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to score answers", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to score answers")
			return
		}

		slog.Debug("answers scored", "id", res.ID, "answered", res.Answered)
		writeJSON(w, http.StatusOK, res)
	}
}
