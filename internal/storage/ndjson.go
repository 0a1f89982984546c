package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
)

// encodeRows streams rows as newline-delimited JSON.
// The caller must Close the returned reader so the encoder goroutine can exit.
func encodeRows(rows []model.Row) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		enc := json.NewEncoder(pw)
		enc.SetEscapeHTML(false)
		for i, row := range rows {
			if err := enc.Encode(row); err != nil {
				pw.CloseWithError(fmt.Errorf("encode row %d: %w", i, err))
				return
			}
		}
		pw.Close()
	}()

	return pr
}
