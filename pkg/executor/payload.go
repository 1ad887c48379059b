package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// maxErrorOutput bounds how much child output is carried into result
// error and warning strings.
const maxErrorOutput = 1000

// readPayload decodes the benchmark's metrics payload, preferring the
// output file and falling back to stdout when the program wrote nothing
// to disk. Only numeric values survive; producers sometimes emit notes
// or flags alongside the numbers.
func readPayload(outputPath string, stdout []byte) (map[string]float64, error) {
	data, err := os.ReadFile(outputPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading output file: %w", err)
		}

		data = stdout
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("no output produced")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	metrics := make(map[string]float64, len(raw))

	for k, v := range raw {
		if f, ok := v.(float64); ok {
			metrics[k] = f
		}
	}

	return metrics, nil
}

// tail returns at most the last n bytes of the trimmed string.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)

	if len(s) <= n {
		return s
	}

	return s[len(s)-n:]
}
