package postgres

import (
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// scanFactDetails reads joined attendance rows in factDetailColumns order.
func scanFactDetails(rows *sql.Rows) ([]database.FactDetail, error) {
	var out []database.FactDetail
	for rows.Next() {
		var d database.FactDetail
		if err := rows.Scan(
			&d.ID, &d.PersonID, &d.PersonName, &d.SubjectID, &d.SubjectName, &d.Timestamp, &d.Day,
		); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return out, nil
}
