package tushare

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"tushare-db-syncer/database"
	"tushare-db-syncer/logger"
)

const (
	APIURL         = "https://api.tushare.pro"
	DefaultTimeout = 30 * time.Second
)

// DefaultFields is the full stock_basic field list requested when the caller
// does not narrow it.
var DefaultFields = database.ColumnNames

// RawRecord is one upstream row keyed by response field name. Values are the
// decoded JSON scalars, including null.
type RawRecord map[string]interface{}

// Client issues RPC-style POST requests against the provider endpoint.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		BaseURL: APIURL,
		Token:   token,
		HTTP:    &http.Client{},
	}
}

type FetchParams struct {
	Exchange   string
	ListStatus string
	Fields     []string
	Timeout    time.Duration
}

type requestEnvelope struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type responseEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// FetchStockBasic issues exactly one POST for the stock_basic operation and
// returns the decoded rows. Zero matching rows is an empty slice, not an
// error. Failure kinds are classified per errors.go; no retry happens here.
func (c *Client) FetchStockBasic(ctx context.Context, params FetchParams) ([]RawRecord, error) {
	fields := params.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	body, err := json.Marshal(requestEnvelope{
		APIName: "stock_basic",
		Token:   c.Token,
		Params: map[string]string{
			"exchange":    params.Exchange,
			"list_status": params.ListStatus,
		},
		Fields: strings.Join(fields, ","),
	})
	if err != nil {
		return nil, errors.Wrap(err, "FetchStockBasic: Marshal")
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "FetchStockBasic: NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "FetchStockBasic: Unmarshal")
	}

	if envelope.Code != 0 {
		return nil, &ProtocolError{Code: envelope.Code, Msg: envelope.Msg}
	}

	return zipRecords(envelope.Data.Fields, envelope.Data.Items), nil
}

// zipRecords pairs the response field-name list against each value list
// positionally. Rows whose value count differs from the field count cannot be
// mapped reliably and are dropped rather than zipped short.
func zipRecords(fields []string, items [][]interface{}) []RawRecord {
	records := make([]RawRecord, 0, len(items))
	dropped := 0

	for _, item := range items {
		if len(item) != len(fields) {
			dropped++
			continue
		}

		record := make(RawRecord, len(fields))
		for i, name := range fields {
			record[name] = item[i]
		}
		records = append(records, record)
	}

	if dropped > 0 {
		logger.Warn("dropped %d rows whose value count does not match the %d response fields", dropped, len(fields))
	}

	return records
}
