// Package practicum is the HTTP client for the Practicum homework-status API.
//
// The poll core treats it as an opaque fetch(cursor) collaborator: the only
// error kinds that cross the boundary are homework.APIError (transport or
// non-success status) and homework.MalformedResponseError (undecodable body).
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/homework"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

type Config struct {
	Token    string
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// HomeworkStatuses fetches review statuses updated at or after the given
// cursor. The decoded payload is returned untyped; structural validation is
// the caller's concern (homework.Records).
func (c *Client) HomeworkStatuses(ctx context.Context, from int64) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, &homework.APIError{Detail: "некорректный запрос", Err: err}
	}
	req.Header.Set("Authorization", "OAuth "+strings.TrimSpace(c.cfg.Token))

	q := url.Values{}
	q.Set("from_date", strconv.FormatInt(from, 10))
	req.URL.RawQuery = q.Encode()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &homework.APIError{
			Detail: fmt.Sprintf("эндпоинт %s, from_date=%d", c.cfg.Endpoint, from),
			Err:    err,
		}
	}
	defer resp.Body.Close()

	// Read with a cap so an error body excerpt stays log-sized.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &homework.APIError{Detail: "чтение тела ответа", Err: err}
	}

	if resp.StatusCode/100 != 2 {
		return nil, &homework.APIError{
			Detail: fmt.Sprintf("код ответа %d: %s", resp.StatusCode, excerpt(body, 200)),
		}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &homework.MalformedResponseError{
			Reason: "тело ответа не является корректным JSON",
		}
	}

	c.log.Debug("homework statuses fetched",
		logx.Int64("from_date", from),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	return raw, nil
}

func excerpt(b []byte, maxN int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxN {
		return s
	}
	return s[:maxN] + "..."
}
