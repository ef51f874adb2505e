package models

// Unit is the read model of a course offering.
type Unit struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}
