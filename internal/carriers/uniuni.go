package carriers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

const defaultUniUniBaseURL = "https://portal.uniuni.com"

// The portal is a Nuxt app; the tracking state is serialized into a
// script tag as `window.__NUXT__={...};`.
var nuxtRe = regexp.MustCompile(`window\.__NUXT__=(\{.*\});`)

type uniuniClient struct {
	http *resty.Client
	log  logx.Logger
}

func newUniUni(cfg Config, log logx.Logger) *uniuniClient {
	base := strings.TrimSpace(cfg.UniUni.BaseURL)
	if base == "" {
		base = defaultUniUniBaseURL
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.timeout()).
		SetRetryCount(1)
	return &uniuniClient{http: hc, log: log}
}

type uniuniPayload struct {
	State struct {
		Track struct {
			Items []struct {
				Status    string `json:"status"`
				SpathList []struct {
					PathInfo string `json:"pathInfo"`
					PathAddr string `json:"pathAddr"`
					PathTime int64  `json:"pathTime"`
				} `json:"spathList"`
			} `json:"items"`
		} `json:"track"`
	} `json:"state"`
}

func (c *uniuniClient) Fetch(ctx context.Context, number string, withHistory bool) track.Snapshot {
	const carrier = track.CarrierUniUni

	body, err := c.fetchPage(ctx, number)
	if err != nil {
		c.log.Warn("uniuni fetch failed", logx.String("number", number), logx.Err(err))
		return classifyFetchErr(carrier, number, err)
	}

	payload, err := extractNuxtPayload(body)
	if err != nil {
		c.log.Warn("uniuni payload missing", logx.String("number", number), logx.Err(err))
		return track.ErrorSnapshot(carrier, number, "No Data")
	}
	if len(payload.State.Track.Items) == 0 {
		return track.ErrorSnapshot(carrier, number, "No Data")
	}

	item := payload.State.Track.Items[0]
	events := make([]rawEvent, 0, len(item.SpathList))
	for _, p := range item.SpathList {
		ev := rawEvent{Desc: strings.TrimSpace(p.PathInfo), Loc: strings.TrimSpace(p.PathAddr)}
		if p.PathTime > 0 {
			ev.When = timeOrRaw{Parsed: true, Unix: p.PathTime}
		}
		events = append(events, ev)
	}
	return buildSnapshot(carrier, number, events, withHistory, false)
}

func (c *uniuniClient) fetchPage(ctx context.Context, number string) ([]byte, error) {
	res, err := c.http.R().SetContext(ctx).Get("/track/" + number)
	if err != nil {
		return nil, errors.Wrap(err, "get tracking page")
	}
	if res.StatusCode()/100 != 2 {
		return nil, &httpError{Status: res.StatusCode()}
	}
	return res.Body(), nil
}

// extractNuxtPayload locates the Nuxt state script and decodes it.
func extractNuxtPayload(body []byte) (*uniuniPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := nuxtRe.FindStringSubmatch(s.Text()); m != nil {
			raw = m[1]
			return false
		}
		return true
	})
	if raw == "" {
		// Some responses inline the state outside a well-formed script tag.
		if m := nuxtRe.FindSubmatch(body); m != nil {
			raw = string(m[1])
		}
	}
	if raw == "" {
		return nil, errors.New("window.__NUXT__ state not found")
	}

	var payload uniuniPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.Wrap(err, "decode nuxt state")
	}
	return &payload, nil
}

type httpError struct{ Status int }

func (e *httpError) Error() string { return fmt.Sprintf("http %d", e.Status) }

func classifyFetchErr(c track.Carrier, number string, err error) track.Snapshot {
	var he *httpError
	if errors.As(err, &he) {
		return track.ErrorSnapshot(c, number, fmt.Sprintf("HTTP %d", he.Status))
	}
	return systemError(c, number, err)
}
