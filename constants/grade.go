package constants

import "regexp"

// Grade is the trainee's training grade at the time of a procedure.
type Grade string

const (
	GradeST1     Grade = "ST1"
	GradeST2     Grade = "ST2"
	GradeST3     Grade = "ST3"
	GradeST4     Grade = "ST4"
	GradeST5     Grade = "ST5"
	GradeST6     Grade = "ST6"
	GradeST7     Grade = "ST7"
	GradeASTO    Grade = "ASTO"
	GradeTSC     Grade = "TSC"
	GradeOLT     Grade = "OLT"
	GradeUnknown Grade = ""
)

// GridGrades is the closed grade vocabulary of the ESR grid, in display order.
var GridGrades = []Grade{
	GradeST1,
	GradeST2,
	GradeST3,
	GradeST4,
	GradeST5,
	GradeST6,
	GradeST7,
	GradeASTO,
	GradeTSC,
	GradeOLT,
}

// gradeToken matches the full closed grade vocabulary, including the legacy
// codes (FY1/FY2, CT1/CT2, FTSTA) that older exports still carry.
var gradeToken = regexp.MustCompile(`^(ST[1-7]|ASTO|TSC|OLT|FY[12]|CT[12]|FTSTA)$`)

// GradeFromToken matches a token against the grade vocabulary.
// FTSTA is a historical alias for ST1 and is normalized. The other legacy
// codes (FY1/FY2, CT1/CT2) anchor the token but have no grid grade, so they
// resolve to GradeUnknown.
func GradeFromToken(token string) (Grade, bool) {
	if !gradeToken.MatchString(token) {
		return GradeUnknown, false
	}
	switch token {
	case "FTSTA":
		return GradeST1, true
	case "FY1", "FY2", "CT1", "CT2":
		return GradeUnknown, true
	}
	return Grade(token), true
}
