package score

import (
	"slices"
	"strings"
)

// Category is a scoring domain. Classifiers belong to a category when their
// identifier ends with its label.
type Category struct {
	Label string `json:"label" yaml:"label"`
	// Disorder categories explain their score against the final question
	// pool instead of the members' own feature lists.
	Disorder bool `json:"disorder" yaml:"disorder"`
}

// Matches reports whether the classifier id belongs to c.
func (c Category) Matches(id string) bool {
	return strings.HasSuffix(id, c.Label)
}

// disorderMarkers select the classifiers (by substring) that are fed the
// shared final question pool.
var disorderMarkers = []string{
	"Otizm",
	"DEHB",
	"Zihinsel",
	"Dil ve Konuşma",
	"Koordinasyon",
}

// UsesFinalPool reports whether id contains one of the disorder markers.
func UsesFinalPool(id string) bool {
	for _, m := range disorderMarkers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return false
}

func newCategory(label string) Category {
	return Category{Label: label, Disorder: UsesFinalPool(label)}
}

// DefaultCategories is the fixed set of categories in reporting order.
var DefaultCategories = []Category{
	newCategory("Sosyal"),
	newCategory("Duyusal"),
	newCategory("Motor"),
	newCategory("Dil"),
	newCategory("İletisim"),
	newCategory("Ortak_Dikkat"),
	newCategory("Otizm"),
	newCategory("DEHB"),
	newCategory("Dil ve Konuşma Bozuklukları"),
	newCategory("Gelişimsel Koordinasyon Bozukluğu"),
	newCategory("Zihinsel Yetersizlik"),
}

// Group is a category with the classifiers that matched it.
type Group struct {
	Category Category
	Members  []string
}

// Partition assigns classifier ids to categories by suffix. Every category
// gets a group, possibly empty. An id matching several suffixes is placed in
// each of them; nothing dedups across groups.
func Partition(categories []Category, ids []string) []Group {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	groups := make([]Group, 0, len(categories))
	for _, c := range categories {
		g := Group{Category: c, Members: []string{}}
		for _, id := range sorted {
			if c.Matches(id) {
				g.Members = append(g.Members, id)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
