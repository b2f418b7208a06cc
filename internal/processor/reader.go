package processor

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/sells-group/cx-engine/internal/model"
)

// ReadFeedbackCSV reads feedback items from a CSV file. The first row must
// be a header containing at least "id" and "text" columns; any other columns
// are folded into the item's customer context keyed by header name.
//
// Encoding is "utf-8" (default) or "windows-1256", the legacy Arabic Windows
// code page exports from older survey tools still arrive in.
func ReadFeedbackCSV(path, encoding string) ([]model.FeedbackItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "processor: open feedback file")
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "windows-1256", "cp1256":
		r = transform.NewReader(f, charmap.Windows1256.NewDecoder())
	default:
		return nil, eris.Errorf("processor: unsupported encoding %q", encoding)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "processor: read feedback header")
	}

	idCol, textCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			idCol = i
		case "text":
			textCol = i
		}
	}
	if idCol < 0 || textCol < 0 {
		return nil, eris.New("processor: feedback file must have id and text columns")
	}

	var items []model.FeedbackItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "processor: read feedback row")
		}
		if idCol >= len(record) || textCol >= len(record) {
			continue
		}

		item := model.FeedbackItem{
			ID:   strings.TrimSpace(record[idCol]),
			Text: strings.TrimSpace(record[textCol]),
		}
		if item.ID == "" || item.Text == "" {
			continue
		}

		for i, value := range record {
			if i == idCol || i == textCol || i >= len(header) {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if item.Context == nil {
				item.Context = make(map[string]any)
			}
			item.Context[strings.ToLower(strings.TrimSpace(header[i]))] = value
		}

		items = append(items, item)
	}

	return items, nil
}
