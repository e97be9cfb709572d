package constants

import (
	"strings"
)

// Category is a clinical category used by the ESR summary grid.
type Category string

const (
	Cataract      Category = "Cataract"
	Intravitreal  Category = "Intravitreal"
	Laser         Category = "Laser"
	Glaucoma      Category = "Glaucoma"
	Vitreoretinal Category = "Vitreoretinal"
	Corneal       Category = "Corneal"
	Oculoplastics Category = "Oculoplastics"
	Strabismus    Category = "Strabismus"
)

// categoryKeywords maps each category to the lowercase substrings that
// classify a procedure name into it. Order matters: the first category whose
// keyword matches wins, so the more specific categories come first.
var categoryKeywords = []struct {
	Category Category
	Keywords []string
}{
	{Cataract, []string{"phaco", "cataract"}},
	{Intravitreal, []string{"intravitreal", "ivt"}},
	{Laser, []string{"yag", "capsulotomy", "iridotomy", "prp", "slt", "laser"}},
	{Glaucoma, []string{"trabeculectomy", "glaucoma", "cyclodiode", "istent", "tube"}},
	{Vitreoretinal, []string{"vitrectomy", "retinal detachment", "buckle", "cryo"}},
	{Corneal, []string{"cornea", "keratoplasty", "graft", "pterygium"}},
	{Oculoplastics, []string{"lid", "ptosis", "entropion", "ectropion", "chalazion", "dcr", "blepharoplasty"}},
	{Strabismus, []string{"squint", "strabismus", "recession", "resection"}},
}

var allCategories = []Category{
	Cataract,
	Intravitreal,
	Laser,
	Glaucoma,
	Vitreoretinal,
	Corneal,
	Oculoplastics,
	Strabismus,
}

// AllCategories returns the grid categories in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// CategoryFor classifies a free-text procedure name into at most one category
// by case-insensitive substring match. The second return is false when no
// category keyword matches; such records stay out of the ESR grid.
func CategoryFor(procedure string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(procedure))
	if normalized == "" {
		return "", false
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.Keywords {
			if strings.Contains(normalized, kw) {
				return entry.Category, true
			}
		}
	}
	return "", false
}
