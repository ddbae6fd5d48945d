package events

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DocumentWritten = "document.written"

// Entity kinds derived from document names.
const (
	KindStages   = "stages"
	KindScores   = "scores"
	KindTeams    = "teams"
	KindDetail   = "score_detail"
	KindDocument = "document"
)

// Written is the payload of a document.written event.
type Written struct {
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// Writer appends rows to the events table inside a caller's transaction.
type Writer struct {
	Now func() time.Time
}

// KindOf maps a document name to the entity kind recorded with its events.
func KindOf(name string) string {
	switch {
	case name == "stages.json":
		return KindStages
	case name == "scores.json":
		return KindScores
	case name == "teams.json":
		return KindTeams
	case strings.HasPrefix(name, "score_"):
		return KindDetail
	default:
		return KindDocument
	}
}

// DocumentWritten records that name now holds body.
func (w Writer) DocumentWritten(ctx context.Context, tx *sql.Tx, name string, body []byte) error {
	sum := sha256.Sum256(body)
	return w.Append(ctx, tx, DocumentWritten, KindOf(name), name, Written{Size: len(body), SHA256: hex.EncodeToString(sum[:])})
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID string, payload any) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	data := []byte("{}")
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("marshal %s payload: %w", evtType, err)
		}
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339Nano), evtType, entityKind, nullable(entityID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
