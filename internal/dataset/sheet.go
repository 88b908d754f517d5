package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic = []byte{0x50, 0x4b}                                     // .xlsx/.xlsm container
	oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1} // legacy BIFF .xls
)

// ReadSheetRows reads the first worksheet of a spreadsheet as string cells.
// The container format is sniffed from the file's magic bytes rather than
// its extension, so a zip-container workbook carrying a .xls name (the only
// form this system can write for legacy targets) still reads back.
func ReadSheetRows(path string) ([][]string, error) {
	magic, err := readMagic(path, 8)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch {
	case bytes.HasPrefix(magic, zipMagic):
		return readWorkbookRows(path)
	case bytes.HasPrefix(magic, oleMagic):
		return readLegacyRows(path)
	}
	return nil, fmt.Errorf("%s: not a recognized spreadsheet container", path)
}

func readMagic(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}

func readWorkbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

func readLegacyRows(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("%s: workbook has no readable sheet", path)
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for r := 0; r <= int(ws.MaxRow); r++ {
		row := ws.Row(r)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
