package msi

import "github.com/majewsky/wininstall-analyze/model"

// readStringTable decodes a table stream whose every column is a
// string-pool reference (true of both Property {Property, Value} and
// Directory {Directory, Directory_Parent, DefaultDir}, the only two
// tables this decoder reads), returning one []string per row in
// declared column order.
//
// MSI table streams are stored column-major: all of column 0's values
// for every row come first, then all of column 1's, and so on — not
// row-major — so the row count must be derived from the stream length
// instead of carrying an explicit count.
func readStringTable(data []byte, sp *stringPool, numColumns int) ([][]string, error) {
	width := sp.refWidth()
	rowWidth := width * numColumns
	if rowWidth == 0 {
		return nil, nil
	}
	rowCount := len(data) / rowWidth
	if rowCount == 0 {
		return nil, nil
	}

	rows := make([][]string, rowCount)
	for r := range rows {
		rows[r] = make([]string, numColumns)
	}
	for col := 0; col < numColumns; col++ {
		colStart := col * rowCount * width
		for r := 0; r < rowCount; r++ {
			off := colStart + r*width
			if off+width > len(data) {
				return nil, model.NewErr(decoderName, model.KindBounds, errShort("table column data"))
			}
			idx := readStringRef(data, off, width)
			rows[r][col] = sp.lookup(idx)
		}
	}
	return rows, nil
}
