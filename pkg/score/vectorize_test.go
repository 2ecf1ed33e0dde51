package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorize(t *testing.T) {
	features := map[string][]string{
		"LR_Sosyal":    {"Q3", "Q1", "Q2", "Q9"},
		"RF_Otizm":     {"Q1"},
		"SVM_Zihinsel": {"Q4"},
	}
	answers := Answers{"Q1": Yes, "Q2": No, "Q3": Yes, "Q7": Yes}
	pool := []string{"Q7", "Q1", "Q2"}

	got := Vectorize(answers, features, pool)
	require.Len(t, got, 3)

	assert.Equal(t, []float64{1, 1, 0, 0}, got["LR_Sosyal"])
	assert.Equal(t, []float64{1, 1, 0}, got["RF_Otizm"])
	assert.Equal(t, []float64{1, 1, 0}, got["SVM_Zihinsel"])
}

func TestVectorize_EmptyPool(t *testing.T) {
	features := map[string][]string{
		"RF_Gelişimsel Koordinasyon Bozukluğu": {"Q1", "Q2"},
		"RF_Motor":                             {"Q1"},
	}
	got := Vectorize(Answers{"Q1": Yes}, features, nil)

	v, ok := got["RF_Gelişimsel Koordinasyon Bozukluğu"]
	require.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, []float64{1}, got["RF_Motor"])
}

func TestVectorize_NoAnswers(t *testing.T) {
	got := Vectorize(nil, map[string][]string{"A_Dil": {"Q1", "Q2"}}, nil)
	assert.Equal(t, []float64{0, 0}, got["A_Dil"])
}

func TestUsesFinalPool(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{"Model_Otizm", true},
		{"XGB_DEHB", true},
		{"LR_Zihinsel Yetersizlik", true},
		{"RF_Dil ve Konuşma Bozuklukları", true},
		{"RF_Gelişimsel Koordinasyon Bozukluğu", true},
		{"RF_Dil", false},
		{"RF_Sosyal", false},
		{"RF_Ortak_Dikkat", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, UsesFinalPool(tt.id))
		})
	}
}

func TestPartition(t *testing.T) {
	ids := []string{
		"B_Sosyal",
		"A_Sosyal",
		"RF_Dil",
		"RF_Dil ve Konuşma Bozuklukları",
		"Unmatched_Model",
	}
	groups := Partition(DefaultCategories, ids)
	require.Len(t, groups, len(DefaultCategories))

	byLabel := make(map[string][]string)
	for _, g := range groups {
		byLabel[g.Category.Label] = g.Members
	}

	assert.Equal(t, []string{"A_Sosyal", "B_Sosyal"}, byLabel["Sosyal"])
	assert.Equal(t, []string{"RF_Dil"}, byLabel["Dil"])
	assert.Equal(t, []string{"RF_Dil ve Konuşma Bozuklukları"}, byLabel["Dil ve Konuşma Bozuklukları"])
	assert.Empty(t, byLabel["Motor"])
	assert.NotNil(t, byLabel["Motor"])
}

func TestDefaultCategories_Disorder(t *testing.T) {
	disorder := 0
	for _, c := range DefaultCategories {
		if c.Disorder {
			disorder++
		}
	}
	assert.Len(t, DefaultCategories, 11)
	assert.Equal(t, 5, disorder)
}
