package core

// Table ids used by the page.
const (
	TotalsTableID        = "transactionsTable"
	SearchResultsTableID = "searchResultsTable"
)

type (
	// Row is one data row; cells are already rendered text.
	Row []string

	// Table is a header plus data rows. The header is never cleared.
	Table struct {
		ID      string
		Columns []string
		Rows    []Row
	}
)

// NewTable returns an empty table with the given header.
func NewTable(id string, columns ...string) Table {
	return Table{ID: id, Columns: append([]string(nil), columns...)}
}

// Clear drops every data row and keeps the header.
func (t *Table) Clear() {
	t.Rows = nil
}

// Replace clears the table and inserts rows in the given order.
func (t *Table) Replace(rows []Row) {
	t.Clear()
	t.Rows = append(t.Rows, rows...)
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Clone returns a deep copy safe to hand to templates.
func (t Table) Clone() Table {
	out := Table{ID: t.ID, Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([]Row, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append(Row(nil), r...)
		}
	}
	return out
}

// TotalsRows renders member totals in server order: member id, total fee.
func TotalsRows(data []MemberSummary) []Row {
	rows := make([]Row, 0, len(data))
	for _, m := range data {
		rows = append(rows, Row{m.MemberID.String(), m.TotalFee.String()})
	}
	return rows
}

// TransactionRows renders transactions in server order: id, fee, creation time.
func TransactionRows(data []TransactionRecord) []Row {
	rows := make([]Row, 0, len(data))
	for _, tx := range data {
		rows = append(rows, Row{tx.ID.String(), tx.BorrowFee.String(), tx.CreateTime})
	}
	return rows
}
