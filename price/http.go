package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/costbasis"
)

// HTTP reads quotes from a JSON web API.
//
// URL is a template where "{symbol}" is replaced by the escaped instrument, and
// Path is the JSONPath of the last price in the response, e.g.
// "$.chart.result[0].meta.regularMarketPrice".
type HTTP struct {
	URL      string
	Path     string
	Currency string       // Currency of the quotes, empty for the ledger currency.
	Client   *http.Client // Client defaults to http.DefaultClient.
}

// LastPrice implements costbasis.PriceProvider.
//
// An unknown symbol (404) or a response without a usable value at Path is
// reported as costbasis.ErrPriceUnavailable. Transport failures and other
// statuses are returned as is.
func (h *HTTP) LastPrice(ctx context.Context, instrument string) (costbasis.Money, error) {
	addr := strings.ReplaceAll(h.URL, "{symbol}", url.QueryEscape(instrument))

	var jobj any
	err := jwget(ctx, h.client(), addr, &jobj)
	if errors.Is(err, errNotFound) {
		return costbasis.Money{}, fmt.Errorf("%w: %s: %v", costbasis.ErrPriceUnavailable, instrument, err)
	}
	if err != nil {
		return costbasis.Money{}, fmt.Errorf("error retrieving %q: %w", instrument, err)
	}

	jval, err := jsonpath.Get(h.Path, jobj)
	if err != nil {
		return costbasis.Money{}, fmt.Errorf("%w: %s: no value at %q: %v", costbasis.ErrPriceUnavailable, instrument, h.Path, err)
	}
	// jsonpath may return a list with a single answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	var s string
	switch v := jval.(type) {
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		// some APIs quote numbers, with a decimal comma.
		s = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	default:
		return costbasis.Money{}, fmt.Errorf("%w: %s: value at %q is %v", costbasis.ErrPriceUnavailable, instrument, h.Path, jval)
	}
	p, err := costbasis.ParseMoney(s, h.Currency)
	if err != nil {
		return costbasis.Money{}, fmt.Errorf("%w: %s: invalid price %q", costbasis.ErrPriceUnavailable, instrument, s)
	}
	if !p.IsPositive() {
		return costbasis.Money{}, fmt.Errorf("%w: %s: empty quote", costbasis.ErrPriceUnavailable, instrument)
	}
	return p, nil
}

func (h *HTTP) client() *http.Client {
	if h.Client == nil {
		return http.DefaultClient
	}
	return h.Client
}

var errNotFound = errors.New("not found")

// jwget performs an HTTP GET request and unmarshals the JSON response into
// data.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: GET %v%v", errNotFound, resp.Request.URL.Host, resp.Request.URL.Path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("cannot parse response of %v%v: %w", resp.Request.URL.Host, resp.Request.URL.Path, err)
	}
	return nil
}
