package repository

import (
	"github.com/wanxtv/wanx/backend/internal/feed"
	"gorm.io/gorm"
)

type candidateRow struct {
	ID      string
	SortKey float64
}

// paginate bounds q by cursor on (column, idColumn) and orders it in the feed direction.
// Timestamp cursors are exclusive bounds; one carrying an id resumes inside a run of
// equal keys. Page cursors become offsets. Ties on column are broken by idColumn.
func paginate(q *gorm.DB, idColumn, column string, order feed.Order, cursor feed.Cursor, limit int) *gorm.DB {
	dir, op := "DESC", "<"
	if order == feed.Ascending {
		dir, op = "ASC", ">"
	}
	switch {
	case cursor.IsPage():
		q = q.Offset(cursor.Offset(limit))
	case cursor.After() != "":
		q = q.Where("("+column+" "+op+" ? OR ("+column+" = ? AND "+idColumn+" "+op+" ?))",
			cursor.Value(), cursor.Value(), cursor.After())
	default:
		q = q.Where(column+" "+op+" ?", cursor.Value())
	}
	return q.Order(column + " " + dir).Order(idColumn + " " + dir).Limit(limit)
}

// keyset runs a paginated candidate query selecting idColumn and column.
func keyset(q *gorm.DB, idColumn, column string, order feed.Order, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
	var rows []candidateRow
	err := paginate(q, idColumn, column, order, cursor, limit).
		Select(idColumn + " AS id, " + column + " AS sort_key").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]feed.Candidate, len(rows))
	for i, row := range rows {
		out[i] = feed.Candidate{ID: row.ID, Key: row.SortKey}
	}
	return out, nil
}
