package model

type Verse struct {
	ID          int    `db:"id" json:"id"`
	Reference   string `db:"reference" json:"reference"`
	Text        string `db:"text" json:"text"`
	Translation string `db:"translation" json:"translation"`
}
