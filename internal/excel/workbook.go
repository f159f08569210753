package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"visit-audit/internal/models"
)

// Workbook wraps an excelize file and exposes the narrow reading surface
// the validator needs: sheet discovery, sheet resolution and a bounded 2D
// snapshot of one worksheet.
type Workbook struct {
	file *excelize.File
}

// OpenWorkbook opens workbook bytes for reading.
func OpenWorkbook(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	return &Workbook{file: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// SheetInfos lists every worksheet with a cheap has-data probe, for the
// sheet-selection flow.
func (w *Workbook) SheetInfos() []models.SheetInfo {
	names := w.file.GetSheetList()
	infos := make([]models.SheetInfo, 0, len(names))
	for _, name := range names {
		hasData := false
		if rows, err := w.file.Rows(name); err == nil {
			for rows.Next() {
				cols, err := rows.Columns()
				if err != nil {
					break
				}
				for _, v := range cols {
					if strings.TrimSpace(v) != "" {
						hasData = true
						break
					}
				}
				if hasData {
					break
				}
			}
			rows.Close()
		}
		infos = append(infos, models.SheetInfo{Name: name, HasData: hasData})
	}
	return infos
}

// SheetRows reads the named worksheet into a 2D array of cell strings,
// using the streaming row iterator so a malformed or oversized sheet
// cannot balloon memory. When maxRows > 0, at most maxRows+1 rows are
// collected; the caller detects the overflow by the extra row.
func (w *Workbook) SheetRows(name string, maxRows int) ([][]string, error) {
	iter, err := w.file.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	defer iter.Close()

	var rows [][]string
	for iter.Next() {
		cols, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows of sheet %s: %w", name, err)
		}
		rows = append(rows, cols)
		if maxRows > 0 && len(rows) > maxRows {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return rows, nil
}

// ResolveSheet picks the worksheet to validate. The explicitly selected
// name wins when present; otherwise template hints are tried by exact
// match, then substring containment, then normalized fuzzy match, in that
// order. ok=false means the caller has to be asked to choose.
func ResolveSheet(available []string, selected string, hints []string) (string, bool) {
	if selected != "" {
		for _, name := range available {
			if name == selected {
				return name, true
			}
		}
		return "", false
	}

	for _, hint := range hints {
		for _, name := range available {
			if name == hint {
				return name, true
			}
		}
	}
	for _, hint := range hints {
		for _, name := range available {
			if strings.Contains(name, hint) || strings.Contains(hint, name) {
				return name, true
			}
		}
	}
	for _, hint := range hints {
		nh := normalizeSheetName(hint)
		if nh == "" {
			continue
		}
		for _, name := range available {
			nn := normalizeSheetName(name)
			if nn == nh || strings.Contains(nn, nh) || strings.Contains(nh, nn) {
				return name, true
			}
		}
	}
	return "", false
}

func normalizeSheetName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}
