package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrRateLimited — квота ключа исчерпана, имеет смысл ротация ключа и повтор
var ErrRateLimited = errors.New("generation API rate limited")

// Generator — интерфейс генерации текста. Сервисы зависят от него,
// а не от конкретного HTTP клиента.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client выполняет запросы к Gemini-совместимому REST API.
// При rate-limit ответах ротирует ключ пула и повторяет запрос
// с экспоненциальной задержкой, всего не более maxAttempts попыток.
type Client struct {
	httpClient  *http.Client
	pool        *KeyPool
	model       string
	endpoint    string
	maxAttempts int
	backoffBase time.Duration
}

// NewClient создает новый клиент генерации
func NewClient(pool *KeyPool, model, endpoint string, timeout time.Duration, maxAttempts int) (*Client, error) {
	if pool == nil {
		return nil, fmt.Errorf("key pool is required for generation client")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required for generation client")
	}
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = pool.Size() + 1
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		pool:        pool,
		model:       model,
		endpoint:    endpoint,
		maxAttempts: maxAttempts,
		backoffBase: time.Second,
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate отправляет промпт и возвращает текст первого кандидата.
// Ошибка терминальна для вызвавшего запроса: никаких фоновых повторов.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	key := c.pool.Pick()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.generateOnce(ctx, key, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}

		key = c.pool.Rotate()
		log.Printf("[Generation] Квота ключа исчерпана (попытка %d/%d), ротация ключа", attempt, c.maxAttempts)

		if attempt < c.maxAttempts {
			backoff := c.backoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, key, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.endpoint, c.model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	// 429 и RESOURCE_EXHAUSTED означают исчерпание квоты текущего ключа
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: status 429", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		var genResp generateResponse
		if json.Unmarshal(body, &genResp) == nil && genResp.Error != nil {
			if genResp.Error.Status == "RESOURCE_EXHAUSTED" {
				return "", fmt.Errorf("%w: %s", ErrRateLimited, genResp.Error.Message)
			}
			return "", fmt.Errorf("generation API error %d: %s", genResp.Error.Code, genResp.Error.Message)
		}
		return "", fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from generation API")
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
