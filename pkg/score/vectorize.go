package score

// Vectorize builds one feature vector per classifier in features. Each element
// is 1 when the respondent answered Yes to the question at that position and 0
// otherwise, unanswered questions included.
//
// Classifiers whose id carries a disorder marker read the shared pool instead
// of their own list. An empty pool yields a zero-length vector, which the
// engine later skips at inference.
func Vectorize(answers Answers, features map[string][]string, pool []string) map[string][]float64 {
	out := make(map[string][]float64, len(features))
	for id, questions := range features {
		if UsesFinalPool(id) {
			questions = pool
		}
		v := make([]float64, len(questions))
		for i, q := range questions {
			if answers[q] == Yes {
				v[i] = 1
			}
		}
		out[id] = v
	}
	return out
}
