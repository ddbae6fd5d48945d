// Package scores keeps the ledger of saved score sheets.
package scores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scorekeeper/internal/receipt"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/teams"
)

const FileName = "scores.json"

var (
	ErrNotFound  = errors.New("score not found")
	ErrTampered  = errors.New("receipt does not match record")
	ErrNoReceipt = errors.New("record has no receipt")
)

// Record is one saved score sheet.
type Record struct {
	ID        string            `json:"id"`
	File      string            `json:"file"`
	Team      teams.Team        `json:"team"`
	Stage     stages.Definition `json:"stage"`
	Round     int               `json:"round"`
	Score     int               `json:"score"`
	Receipt   string            `json:"receipt,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type document struct {
	Version int      `json:"version"`
	Scores  []Record `json:"scores"`
}

// Ledger holds score records in insertion order.
type Ledger struct {
	store  storage.Store
	Logger *slog.Logger
	Signer receipt.Signer
	Now    func() time.Time

	mu      sync.Mutex
	records []Record
}

func New(store storage.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, Logger: logger}
}

func (l *Ledger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Load replaces the records with scores.json. A missing file is an empty ledger.
func (l *Ledger) Load(ctx context.Context) error {
	var doc document
	if err := storage.ReadJSON(ctx, l.store, FileName, &doc); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			return fmt.Errorf("load scores: %w", err)
		}
		l.logger().Info("no scores yet", "file", FileName)
	}
	l.mu.Lock()
	l.records = doc.Scores
	l.mu.Unlock()
	return nil
}

// Add appends r, filling its id, creation time and, when signing is
// enabled, its receipt.
func (l *Ledger) Add(r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now()
	}
	if l.Signer.Enabled() {
		token, err := l.Signer.Sign(claimsFor(r))
		if err != nil {
			return Record{}, err
		}
		r.Receipt = token
	}
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
	return r, nil
}

// Save writes every record to scores.json.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	doc := document{Version: 1, Scores: slices.Clone(l.records)}
	l.mu.Unlock()
	if doc.Scores == nil {
		doc.Scores = []Record{}
	}
	if err := storage.WriteJSON(ctx, l.store, FileName, doc); err != nil {
		l.logger().Error("scores write error", "error", err)
		return err
	}
	return nil
}

func (l *Ledger) List() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

func (l *Ledger) Get(id string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Verify checks the receipt of record id against its stored fields.
func (l *Ledger) Verify(id string) (receipt.Claims, error) {
	r, err := l.Get(id)
	if err != nil {
		return receipt.Claims{}, err
	}
	if r.Receipt == "" {
		return receipt.Claims{}, ErrNoReceipt
	}
	c, err := l.Signer.Verify(r.Receipt)
	if err != nil {
		return receipt.Claims{}, err
	}
	want := claimsFor(r)
	if c.Subject != want.Subject || c.File != want.File || c.Team != want.Team ||
		c.Stage != want.Stage || c.Round != want.Round || c.Score != want.Score {
		return c, ErrTampered
	}
	return c, nil
}

func claimsFor(r Record) receipt.Claims {
	return receipt.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: r.ID, IssuedAt: jwt.NewNumericDate(r.CreatedAt)},
		File:             r.File,
		Team:             r.Team.Number,
		Stage:            r.Stage.ID,
		Round:            r.Round,
		Score:            r.Score,
	}
}
