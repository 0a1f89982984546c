package ndjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/ingestion"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
)

var errNullRow = errors.New("row is null, want a JSON object")

// DecodeError reports the row that could not be parsed.
type DecodeError struct {
	Row int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ndjson: row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reader is a Fetcher over a stream of newline-delimited JSON objects,
// e.g. the output of an upstream query piped into the CLI.
type Reader struct {
	r io.Reader
}

var _ ingestion.Fetcher = (*Reader)(nil)

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Fetch decodes every row of the stream. The stream already holds the new rows,
// so table and fromBlock are not used to filter.
func (n *Reader) Fetch(ctx context.Context, _ string, _ uint64) ([]model.Row, error) {
	var rows []model.Row
	dec := json.NewDecoder(n.r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var row model.Row
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, &DecodeError{Row: len(rows), Err: err}
		}
		if row == nil {
			return nil, &DecodeError{Row: len(rows), Err: errNullRow}
		}
		rows = append(rows, row)
	}
}
