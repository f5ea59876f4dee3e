// Package opentdb is a client for the Open Trivia Database (opentdb.com).
package opentdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/questions"
)

// DefaultBaseURL is the public Open Trivia Database endpoint
const DefaultBaseURL = "https://opentdb.com"

// Response codes returned in the response_code field
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
	codeRateLimited   = 5
)

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns settings for the public API
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// Client fetches categories and questions. Every request uses a fresh session
// token so one game never sees a repeated question.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Client implements questions.Source
var _ questions.Source = (*Client)(nil)

// New creates a new Client
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type tokenResponse struct {
	ResponseCode    int    `json:"response_code"`
	ResponseMessage string `json:"response_message"`
	Token           string `json:"token"`
}

type questionResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type apiQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type categoriesResponse struct {
	TriviaCategories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"trivia_categories"`
}

type countResponse struct {
	CategoryID    int `json:"category_id"`
	QuestionCount struct {
		Total  int `json:"total_question_count"`
		Easy   int `json:"total_easy_question_count"`
		Medium int `json:"total_medium_question_count"`
		Hard   int `json:"total_hard_question_count"`
	} `json:"category_question_count"`
}

// FetchQuestions returns count questions from the category with their text
// decoded from HTML. Anything short of count questions is an error.
func (c *Client) FetchQuestions(ctx context.Context, categoryID model.CategoryID, count int) ([]model.QuestionData, error) {
	token, err := c.requestToken(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(count))
	params.Set("category", strconv.Itoa(int(categoryID)))
	params.Set("token", token)

	var resp questionResponse
	if err := c.get(ctx, "/api.php", params, &resp); err != nil {
		return nil, unavailable(err)
	}
	if resp.ResponseCode != codeSuccess {
		return nil, unavailable(responseCodeError(resp.ResponseCode))
	}
	if len(resp.Results) < count {
		return nil, unavailable(fmt.Errorf("got %d questions, wanted %d", len(resp.Results), count))
	}

	out := make([]model.QuestionData, 0, count)
	for _, q := range resp.Results[:count] {
		incorrect := make([]string, len(q.IncorrectAnswers))
		for i, a := range q.IncorrectAnswers {
			incorrect[i] = decodeHTML(a)
		}
		out = append(out, model.QuestionData{
			Text:             decodeHTML(q.Question),
			CorrectAnswer:    decodeHTML(q.CorrectAnswer),
			IncorrectAnswers: incorrect,
			Difficulty:       q.Difficulty,
			Type:             q.Type,
		})
	}

	c.logger.Debug("fetched questions",
		slog.Int("category_id", int(categoryID)),
		slog.Int("count", len(out)),
	)
	return out, nil
}

// FetchCategories lists every category with its question counts
func (c *Client) FetchCategories(ctx context.Context) ([]model.Category, error) {
	var resp categoriesResponse
	if err := c.get(ctx, "/api_category.php", nil, &resp); err != nil {
		return nil, unavailable(err)
	}

	out := make([]model.Category, 0, len(resp.TriviaCategories))
	for _, tc := range resp.TriviaCategories {
		params := url.Values{}
		params.Set("category", strconv.Itoa(tc.ID))

		var counts countResponse
		if err := c.get(ctx, "/api_count.php", params, &counts); err != nil {
			return nil, unavailable(fmt.Errorf("count for category %d: %w", tc.ID, err))
		}

		out = append(out, model.Category{
			ID:              model.CategoryID(tc.ID),
			Name:            decodeHTML(tc.Name),
			Available:       true,
			TotalQuestions:  counts.QuestionCount.Total,
			EasyQuestions:   counts.QuestionCount.Easy,
			MediumQuestions: counts.QuestionCount.Medium,
			HardQuestions:   counts.QuestionCount.Hard,
		})
	}
	return out, nil
}

func (c *Client) requestToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("command", "request")

	var resp tokenResponse
	if err := c.get(ctx, "/api_token.php", params, &resp); err != nil {
		return "", err
	}
	if resp.ResponseCode != codeSuccess || resp.Token == "" {
		return "", fmt.Errorf("token request: %w", responseCodeError(resp.ResponseCode))
	}
	return resp.Token, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ErrResponseCode is wrapped by errors reporting a non-zero response_code
var ErrResponseCode = errors.New("opentdb response code")

func responseCodeError(code int) error {
	var reason string
	switch code {
	case codeNoResults:
		reason = "not enough questions in category"
	case codeInvalidParam:
		reason = "invalid parameter"
	case codeTokenNotFound:
		reason = "session token not found"
	case codeTokenEmpty:
		reason = "session token exhausted"
	case codeRateLimited:
		reason = "rate limited"
	default:
		reason = "unknown"
	}
	return fmt.Errorf("%w %d: %s", ErrResponseCode, code, reason)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", model.ErrProviderUnavailable, err)
}

// decodeHTML turns provider text such as "Who wrote &quot;Dune&quot;?" into
// plain text. Input that fails to parse is returned unchanged.
func decodeHTML(s string) string {
	if !strings.ContainsAny(s, "&<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
