package skill

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Large payloads get previewed rather than echoed in full.
const (
	csvColumnPreview = 50
	csvJSONPreview   = 20
)

// CSVSkill parses CSV text and extracts headers, rows or columns. The
// first record is always treated as the header row.
type CSVSkill struct {
	logger *zap.Logger
}

// NewCSVSkill creates the csv_parser skill.
func NewCSVSkill(logger *zap.Logger) *CSVSkill {
	return &CSVSkill{logger: logger}
}

func (s *CSVSkill) Name() string { return "csv_parser" }

func (s *CSVSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	operation := in.Operation
	if operation == "" {
		operation = in.StringParam("operation", "get_csv_headers")
	}

	data := in.StringParam("csv_data", in.Prompt)
	if strings.TrimSpace(data) == "" {
		return Fail(ErrKindValidation, "CSV data cannot be empty."), nil
	}

	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return Fail(ErrKindValidation, fmt.Sprintf("CSV parsing failed: %v", err)), nil
	}
	if len(rows) == 0 {
		return Fail(ErrKindValidation, "CSV data is empty or invalid."), nil
	}

	headers := rows[0]
	dataRows := rows[1:]

	switch operation {
	case "get_csv_headers":
		return OK(map[string]interface{}{
			"headers":       headers,
			"num_data_rows": len(dataRows),
		}), nil

	case "get_csv_row_by_index":
		if _, ok := in.Params["row_index"]; !ok {
			return Fail(ErrKindValidation, "'row_index' (0-based for data rows) is required."), nil
		}
		idx := in.IntParam("row_index", -1)
		if idx < 0 || idx >= len(dataRows) {
			return Fail(ErrKindValidation,
				fmt.Sprintf("Row index %d is out of bounds for %d data rows.", idx, len(dataRows))), nil
		}
		return OK(map[string]interface{}{
			"row_index": idx,
			"row_data":  zipRow(headers, dataRows[idx]),
		}), nil

	case "get_csv_column_by_name":
		name := in.StringParam("column_name", "")
		if name == "" {
			return Fail(ErrKindValidation, "'column_name' is required."), nil
		}
		col := -1
		for i, h := range headers {
			if h == name {
				col = i
				break
			}
		}
		if col == -1 {
			return Fail(ErrKindValidation,
				fmt.Sprintf("Column %q not found in headers: %s", name, strings.Join(headers, ", "))), nil
		}
		column := make([]string, 0, len(dataRows))
		for _, row := range dataRows {
			if col < len(row) {
				column = append(column, row[col])
			}
		}
		preview := column
		if len(preview) > csvColumnPreview {
			preview = preview[:csvColumnPreview]
		}
		return OK(map[string]interface{}{
			"column_name":           name,
			"column_data":           preview,
			"total_items_in_column": len(column),
		}), nil

	case "get_all_data_as_json":
		objects := make([]map[string]string, 0, len(dataRows))
		for _, row := range dataRows {
			objects = append(objects, zipRow(headers, row))
		}
		preview := objects
		if len(preview) > csvJSONPreview {
			preview = preview[:csvJSONPreview]
		}
		return OK(map[string]interface{}{
			"json_data":            preview,
			"total_rows_converted": len(objects),
		}), nil

	default:
		return Fail(ErrKindValidation,
			"Supported operations: get_csv_headers, get_csv_row_by_index, get_csv_column_by_name, get_all_data_as_json."), nil
	}
}

// zipRow pairs header names with one row's values. Short rows simply
// omit the trailing keys.
func zipRow(headers, row []string) map[string]string {
	out := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			out[h] = row[i]
		}
	}
	return out
}

func (s *CSVSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "csv_parser",
		Description: "Parses CSV data provided as a string and allows extraction of headers, rows, or columns.",
		Operations: map[string]Operation{
			"get_csv_headers": {
				Description: "Extracts the header row from the CSV data.",
				Parameters: map[string]interface{}{
					"csv_data": map[string]interface{}{"type": "string", "description": "The CSV data as a string. Can also be passed via 'prompt'."},
				},
				Example: map[string]interface{}{
					"task_type": "csv_parser",
					"operation": "get_csv_headers",
					"csv_data":  "header1,header2\nvalue1,value2",
				},
			},
			"get_csv_row_by_index": {
				Description: "Extracts a specific data row by its 0-based index.",
				Parameters: map[string]interface{}{
					"csv_data":  map[string]interface{}{"type": "string"},
					"row_index": map[string]interface{}{"type": "integer", "description": "0-based index of the data row to retrieve (excludes header)."},
				},
				Example: map[string]interface{}{
					"task_type": "csv_parser",
					"operation": "get_csv_row_by_index",
					"csv_data":  "h1,h2\nv1,v2\nv3,v4",
					"row_index": 0,
				},
			},
			"get_csv_column_by_name": {
				Description: "Extracts all data from a specific column by its header name.",
				Parameters: map[string]interface{}{
					"csv_data":    map[string]interface{}{"type": "string"},
					"column_name": map[string]interface{}{"type": "string", "description": "The name of the header for the column to retrieve."},
				},
				Example: map[string]interface{}{
					"task_type":   "csv_parser",
					"operation":   "get_csv_column_by_name",
					"csv_data":    "name,age\nAlice,30\nBob,24",
					"column_name": "age",
				},
			},
			"get_all_data_as_json": {
				Description: "Converts all data rows (excluding header) into a list of JSON objects.",
				Parameters: map[string]interface{}{
					"csv_data": map[string]interface{}{"type": "string", "description": "The CSV data as a string."},
				},
				Example: map[string]interface{}{
					"task_type": "csv_parser",
					"operation": "get_all_data_as_json",
					"csv_data":  "name,age\nAlice,30\nBob,24",
				},
			},
		},
	}
}
