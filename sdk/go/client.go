package scorekeepersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal scorekeeper HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Stage represents a derived stage.
type Stage struct {
	Index         int    `json:"index"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Rounds        int    `json:"rounds"`
	RoundSequence []int  `json:"round_sequence"`
}

type StageList struct {
	Version uint64  `json:"version"`
	Items   []Stage `json:"items"`
}

type Team struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Breakdown is the score aggregation of a sheet.
type Breakdown struct {
	SubScore        float64 `json:"sub_score"`
	BonusMultiplier float64 `json:"bonus_multiplier"`
	BonusScore      int     `json:"bonus_score"`
	RestScore       float64 `json:"rest_score"`
	Final           int     `json:"final"`
}

type Mission struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Evaluated   bool      `json:"evaluated"`
	Evaluations int       `json:"evaluations"`
	Value       float64   `json:"value"`
	Percentages []float64 `json:"percentages"`
	Errors      []string  `json:"errors"`
}

// Sheet represents the current score sheet (partial).
type Sheet struct {
	Team      *Team      `json:"team"`
	Stage     *Stage     `json:"stage"`
	Round     *int       `json:"round"`
	Signed    bool       `json:"signed"`
	Table     string     `json:"table"`
	Missions  []Mission  `json:"missions"`
	Breakdown *Breakdown `json:"breakdown"`
	Saveable  bool       `json:"saveable"`
}

// Score represents a saved score record.
type Score struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	Team      Team   `json:"team"`
	Round     int    `json:"round"`
	Score     int    `json:"score"`
	Receipt   string `json:"receipt,omitempty"`
	CreatedAt string `json:"created_at"`
	Stage     struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Rounds int    `json:"rounds"`
	} `json:"stage"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Stages lists active stages, or all of them when all is set.
func (c *Client) Stages(ctx context.Context, all bool) (StageList, error) {
	endpoint := "stages"
	if all {
		endpoint += "?all=true"
	}
	var resp StageList
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AddStage appends a stage.
func (c *Client) AddStage(ctx context.Context, id, name string, rounds int) (Stage, error) {
	body := map[string]any{"id": id, "name": name, "rounds": rounds}
	var resp Stage
	err := c.do(ctx, http.MethodPost, "stages", body, &resp)
	return resp, err
}

// MoveStage shifts a stage by delta positions.
func (c *Client) MoveStage(ctx context.Context, id string, delta int) (Stage, error) {
	var resp Stage
	endpoint := fmt.Sprintf("stages/%s/move", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"delta": delta}, &resp)
	return resp, err
}

func (c *Client) RemoveStage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "stages/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SaveStages(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "stages/save", nil, nil)
}

// Sheet returns the current score sheet.
func (c *Client) Sheet(ctx context.Context) (Sheet, error) {
	var resp Sheet
	err := c.do(ctx, http.MethodGet, "scoresheet", nil, &resp)
	return resp, err
}

func (c *Client) SelectTeam(ctx context.Context, number int) (Sheet, error) {
	return c.sheetCall(ctx, "team", map[string]any{"number": number})
}

func (c *Client) ChooseStage(ctx context.Context, id string) (Sheet, error) {
	return c.sheetCall(ctx, "stage", map[string]any{"id": id})
}

func (c *Client) ChooseRound(ctx context.Context, round int) (Sheet, error) {
	return c.sheetCall(ctx, "round", map[string]any{"round": round})
}

func (c *Client) Sign(ctx context.Context, signature []byte) (Sheet, error) {
	return c.sheetCall(ctx, "signature", map[string]any{"signature": signature})
}

// Inc, Dec and Set change an objective of the sheet.
func (c *Client) Inc(ctx context.Context, name string, amount float64) (Sheet, error) {
	return c.sheetCall(ctx, "objectives/"+url.PathEscape(name), map[string]any{"op": "inc", "amount": amount})
}

func (c *Client) Dec(ctx context.Context, name string, amount float64) (Sheet, error) {
	return c.sheetCall(ctx, "objectives/"+url.PathEscape(name), map[string]any{"op": "dec", "amount": amount})
}

func (c *Client) Set(ctx context.Context, name string, value any) (Sheet, error) {
	return c.sheetCall(ctx, "objectives/"+url.PathEscape(name), map[string]any{"op": "set", "value": value})
}

func (c *Client) Discard(ctx context.Context) (Sheet, error) {
	return c.sheetCall(ctx, "discard", nil)
}

// Save saves the sheet and returns the registered score.
func (c *Client) Save(ctx context.Context) (Score, error) {
	var resp Score
	err := c.do(ctx, http.MethodPost, "scoresheet/save", nil, &resp)
	return resp, err
}

// Scores lists saved scores; team 0 lists every team.
func (c *Client) Scores(ctx context.Context, team int) ([]Score, error) {
	endpoint := "scores"
	if team > 0 {
		endpoint = fmt.Sprintf("%s?team=%d", endpoint, team)
	}
	var resp struct {
		Items []Score `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) sheetCall(ctx context.Context, p string, body any) (Sheet, error) {
	var resp Sheet
	err := c.do(ctx, http.MethodPost, "scoresheet/"+p, body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
