package carriers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

const defaultFedExAPIURL = "https://apis.fedex.com"

// tokenSkew forces a refresh slightly before the advertised expiry so an
// in-flight request never rides an expiring token.
const tokenSkew = 60 * time.Second

type fedexClient struct {
	http *resty.Client
	cfg  FedExConfig
	log  logx.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func newFedEx(cfg Config, log logx.Logger) *fedexClient {
	api := strings.TrimSpace(cfg.FedEx.APIURL)
	if api == "" {
		api = defaultFedExAPIURL
	}
	fc := cfg.FedEx
	fc.APIURL = api
	hc := resty.New().
		SetBaseURL(api).
		SetTimeout(cfg.timeout())
	return &fedexClient{http: hc, cfg: fc, log: log}
}

type fedexTrackResponse struct {
	Output struct {
		CompleteTrackResults []struct {
			TrackingNumber string `json:"trackingNumber"`
			TrackResults   []struct {
				Error *struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
				ScanEvents []struct {
					Date             string `json:"date"`
					EventDescription string `json:"eventDescription"`
					ScanLocation     struct {
						City                string `json:"city"`
						StateOrProvinceCode string `json:"stateOrProvinceCode"`
					} `json:"scanLocation"`
				} `json:"scanEvents"`
			} `json:"trackResults"`
		} `json:"completeTrackResults"`
	} `json:"output"`
}

func (c *fedexClient) Fetch(ctx context.Context, number string, withHistory bool) track.Snapshot {
	const carrier = track.CarrierFedEx

	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return track.ErrorSnapshot(carrier, number, "Auth Error")
	}

	token, err := c.bearerToken(ctx)
	if err != nil {
		c.log.Warn("fedex token exchange failed", logx.Err(err))
		return track.ErrorSnapshot(carrier, number, "Auth Error")
	}

	resp, err := c.fetchScans(ctx, token, number)
	if err != nil {
		c.log.Warn("fedex fetch failed", logx.String("number", number), logx.Err(err))
		return classifyFetchErr(carrier, number, err)
	}

	if len(resp.Output.CompleteTrackResults) == 0 ||
		len(resp.Output.CompleteTrackResults[0].TrackResults) == 0 {
		return track.ErrorSnapshot(carrier, number, "No Data")
	}
	result := resp.Output.CompleteTrackResults[0].TrackResults[0]
	if result.Error != nil {
		return track.ErrorSnapshot(carrier, number, "No Data")
	}

	events := make([]rawEvent, 0, len(result.ScanEvents))
	for _, s := range result.ScanEvents {
		ev := rawEvent{
			Desc: strings.TrimSpace(s.EventDescription),
			Loc:  joinLocation(s.ScanLocation.City, s.ScanLocation.StateOrProvinceCode),
		}
		if t, perr := time.Parse(time.RFC3339, s.Date); perr == nil {
			ev.When = timeOrRaw{Parsed: true, Unix: t.Unix()}
		} else {
			ev.When = timeOrRaw{Raw: s.Date}
		}
		events = append(events, ev)
	}
	return buildSnapshot(carrier, number, events, withHistory, true)
}

// bearerToken returns a cached client-credential token, refreshing when
// it is missing or close to expiry.
func (c *fedexClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew)) {
		return c.token, nil
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.APIKey,
			"client_secret": c.cfg.APISecret,
		}).
		SetResult(&out).
		Post("/oauth/token")
	if err != nil {
		return "", errors.Wrap(err, "token exchange")
	}
	if res.StatusCode()/100 != 2 || out.AccessToken == "" {
		return "", errors.Errorf("token exchange http %d", res.StatusCode())
	}

	c.token = out.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *fedexClient) fetchScans(ctx context.Context, token, number string) (*fedexTrackResponse, error) {
	body := map[string]any{
		"includeDetailedScans": true,
		"trackingInfo": []map[string]any{
			{"trackingNumberInfo": map[string]string{"trackingNumber": number}},
		},
	}

	var out fedexTrackResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post("/track/v1/trackingnumbers")
	if err != nil {
		return nil, errors.Wrap(err, "track request")
	}
	if res.StatusCode() == 401 || res.StatusCode() == 403 {
		// Invalidate the cached token; the next sweep retries auth.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return nil, &httpError{Status: res.StatusCode()}
	}
	if res.StatusCode()/100 != 2 {
		return nil, &httpError{Status: res.StatusCode()}
	}
	return &out, nil
}

func joinLocation(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	switch {
	case city == "":
		return state
	case state == "":
		return city
	default:
		return city + ", " + state
	}
}
