package lms

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleStudent is the class list role display name of enrolled learners.
const RoleStudent = "Student"

// GradeObjectTypeNumeric is the GradeObjectType value expected by the grade values endpoint.
const GradeObjectTypeNumeric = 1

// GradeObject is the subset of a remote grade item the sync reads back.
type GradeObject struct {
	ID          int64     `json:"Id"`
	Name        string    `json:"Name"`
	ShortName   string    `json:"ShortName"`
	GradeType   string    `json:"GradeType"`
	MaxPoints   float64   `json:"MaxPoints"`
	IsHidden    bool      `json:"IsHidden"`
	Description *RichText `json:"Description,omitempty"`
}

// IDString renders the identifier the way it is stored on a unit mapping.
func (g GradeObject) IDString() string {
	return strconv.FormatInt(g.ID, 10)
}

type RichText struct {
	Content string `json:"Content"`
	Type    string `json:"Type"`
}

// GradeObjectInput is the create payload for a numeric grade item. Nullable remote fields are
// pointers so they serialise as JSON null.
type GradeObjectInput struct {
	MaxPoints                        float64   `json:"MaxPoints"`
	CanExceedMaxPoints               bool      `json:"CanExceedMaxPoints"`
	IsBonus                          bool      `json:"IsBonus"`
	ExcludeFromFinalGradeCalculation bool      `json:"ExcludeFromFinalGradeCalculation"`
	GradeSchemeID                    *int64    `json:"GradeSchemeId"`
	Name                             string    `json:"Name"`
	ShortName                        string    `json:"ShortName"`
	GradeType                        string    `json:"GradeType"`
	CategoryID                       *int64    `json:"CategoryId"`
	Description                      RichText  `json:"Description"`
	AssociatedTool                   *struct{} `json:"AssociatedTool"`
	IsHidden                         bool      `json:"IsHidden"`
}

// ResultGradeObject is the hidden 0-100 numeric item grades are posted into.
func ResultGradeObject(product string) GradeObjectInput {
	product = strings.TrimSpace(product)
	return GradeObjectInput{
		MaxPoints:   100,
		Name:        fmt.Sprintf("%s Result", product),
		ShortName:   "Result",
		GradeType:   "Numeric",
		Description: RichText{Content: fmt.Sprintf("Result from %s", product), Type: "Text"},
		IsHidden:    true,
	}
}

// ClassListEntry is one member of an org unit class list.
type ClassListEntry struct {
	Identifier               string `json:"Identifier"`
	ProfileIdentifier        string `json:"ProfileIdentifier"`
	DisplayName              string `json:"DisplayName"`
	UserName                 string `json:"Username"`
	OrgDefinedID             string `json:"OrgDefinedId"`
	Email                    string `json:"Email"`
	FirstName                string `json:"FirstName"`
	LastName                 string `json:"LastName"`
	RoleID                   int    `json:"RoleId"`
	ClasslistRoleDisplayName string `json:"ClasslistRoleDisplayName"`
}

// IsStudent reports whether the entry holds the learner role.
func (e ClassListEntry) IsStudent() bool {
	return e.ClasslistRoleDisplayName == RoleStudent
}

type gradeValueInput struct {
	GradeObjectType int     `json:"GradeObjectType"`
	PointsNumerator float64 `json:"PointsNumerator"`
}

// GradeSetup is the org unit grading configuration.
type GradeSetup struct {
	GradingSystem        string `json:"GradingSystem"`
	IsNullGradeZero      bool   `json:"IsNullGradeZero"`
	DefaultGradeSchemeID int64  `json:"DefaultGradeSchemeId"`
}

// Weighted reports whether final grades are computed from weighted categories.
func (g GradeSetup) Weighted() bool {
	return g.GradingSystem == "Weighted"
}
