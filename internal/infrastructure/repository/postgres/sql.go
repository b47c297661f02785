package postgres

import (
	"database/sql"
	"strings"

	sonic "github.com/bytedance/sonic"
)

const insertChunkSize = 500

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func marshalJSON(value any, empty string) (string, error) {
	if value == nil {
		return empty, nil
	}
	raw, err := sonic.MarshalString(value)
	if err != nil {
		return "", err
	}
	if raw == "null" {
		return empty, nil
	}
	return raw, nil
}

func chunks[T any](items []T, size int) [][]T {
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
