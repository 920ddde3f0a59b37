package util

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{bad"), &struct{}{})

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", jsonErr, false, "json_decode_error"},
		{"no rows", pgx.ErrNoRows, false, "entity_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "bids_task_id_freelancer_id_key"`), false, "duplicate_key"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true, "db_connection_error"},
		{"timeout", errors.New("context deadline exceeded: timeout"), true, "db_connection_error"},
		{"unknown", errors.New("something odd"), true, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			if retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", retryable, tt.retryable)
			}
			if errType != tt.errType {
				t.Errorf("errType = %s, want %s", errType, tt.errType)
			}
		})
	}
}
