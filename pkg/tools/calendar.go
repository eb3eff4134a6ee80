package tools

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// isoLayouts are the accepted input formats for event window bounds.
var isoLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// CalendarTool fetches, creates, and checks availability of events against
// a Google Calendar compatible REST backend.
type CalendarTool struct {
	cfg     config.CalendarConfig
	secrets SecretSource
	http    *http.Client
	logger  *slog.Logger
}

func NewCalendarTool(cfg config.CalendarConfig, secrets SecretSource, logger *slog.Logger) *CalendarTool {
	return &CalendarTool{
		cfg:     cfg,
		secrets: secrets,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  telemetry.Component(logger, "tools.calendar"),
	}
}

func (t *CalendarTool) Definition() mcp.Definition {
	return mcp.Definition{
		ToolID:      "calendar",
		Kind:        mcp.KindCalendar,
		Name:        "Calendar Tool",
		Description: "Fetch, create, and check availability of calendar events.",
		APIPath:     "/mcp/calendar",
		Parameters: map[string]string{
			"action":     "create|fetch|list|availability",
			"event_data": "dict",
			"start":      "iso datetime",
			"end":        "iso datetime",
		},
	}
}

func (t *CalendarTool) Execute(ctx context.Context, params mcp.Params) (mcp.Result, error) {
	token := resolveSecret(ctx, t.secrets, "", cmp.Or(t.cfg.TokenEnv, "CALENDAR_TOKEN"), "calendar_token")
	if token == "" && t.cfg.BaseURL == "" {
		return mcp.Result{"status": mcp.StatusSkipped, "message": "calendar backend not configured"}, nil
	}

	calendarID := cmp.Or(params.String("calendar_id"), t.cfg.CalendarID, "primary")
	client := &calendarClient{
		baseURL: cmp.Or(t.cfg.BaseURL, defaultCalendarBaseURL),
		token:   token,
		http:    t.http,
	}

	action := cmp.Or(params.String("action"), "fetch")
	switch action {
	case "create":
		eventData := params.Map("event_data")
		if len(eventData) == 0 {
			return mcp.ErrorResult("Missing event_data in message"), nil
		}
		// Attendee invites need consent scopes the service token does
		// not carry, so the event is created without them.
		event := make(map[string]any, len(eventData))
		maps.Copy(event, eventData)
		delete(event, "attendees")

		created, err := client.insertEvent(ctx, calendarID, event)
		if err != nil {
			t.logger.Warn("calendar event creation failed", "err", err.Error())
			return mcp.ErrorResult(err.Error()), nil
		}
		t.logger.Info("calendar event created", "calendar_id", calendarID)
		return mcp.Result{"status": mcp.StatusSuccess, "event": created}, nil

	case "availability":
		timeMin := cmp.Or(params.String("time_min"), params.String("timeMin"))
		timeMax := cmp.Or(params.String("time_max"), params.String("timeMax"))
		busy, err := client.freeBusy(ctx, calendarID, timeMin, timeMax)
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		return mcp.Result{"status": mcp.StatusSuccess, "busy": busy}, nil

	case "fetch", "list":
		events, err := client.listEvents(ctx, calendarID, params.String("start"), params.String("end"))
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		t.logger.Info("calendar events fetched", "calendar_id", calendarID, "events", len(events))
		return mcp.Result{"status": mcp.StatusSuccess, "events": events}, nil

	default:
		return mcp.ErrorResult(fmt.Sprintf("Unknown action: %s", action)), nil
	}
}

type calendarClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *calendarClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("calendar: marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("calendar: creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("calendar: API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("calendar: decoding response: %w", err)
	}
	return nil
}

// listEvents pages through single events in the window, expanded and ordered
// by start time.
func (c *calendarClient) listEvents(ctx context.Context, calendarID, start, end string) ([]map[string]any, error) {
	timeMin, timeMax, err := eventWindow(start, end)
	if err != nil {
		return nil, err
	}

	events := make([]map[string]any, 0)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("timeMin", timeMin)
		q.Set("timeMax", timeMax)
		q.Set("singleEvents", "true")
		q.Set("orderBy", "startTime")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page struct {
			Items         []map[string]any `json:"items"`
			NextPageToken string           `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodGet, "/calendars/"+url.PathEscape(calendarID)+"/events", q, nil, &page); err != nil {
			return nil, err
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *calendarClient) insertEvent(ctx context.Context, calendarID string, event map[string]any) (map[string]any, error) {
	var created map[string]any
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, nil, event, &created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *calendarClient) freeBusy(ctx context.Context, calendarID, start, end string) ([]map[string]any, error) {
	timeMin, timeMax, err := eventWindow(start, end)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"timeMin": timeMin,
		"timeMax": timeMax,
		"items":   []map[string]string{{"id": calendarID}},
	}
	var out struct {
		Calendars map[string]struct {
			Busy []map[string]any `json:"busy"`
		} `json:"calendars"`
	}
	if err := c.do(ctx, http.MethodPost, "/freeBusy", nil, payload, &out); err != nil {
		return nil, err
	}
	busy := out.Calendars[calendarID].Busy
	if busy == nil {
		busy = make([]map[string]any, 0)
	}
	return busy, nil
}

// eventWindow normalizes the window bounds to UTC RFC3339, defaulting to the
// last 30 days.
func eventWindow(start, end string) (string, string, error) {
	now := time.Now().UTC()
	timeMin := now.AddDate(0, 0, -30).Format(time.RFC3339)
	timeMax := now.Format(time.RFC3339)

	if start != "" {
		parsed, err := parseISO(start)
		if err != nil {
			return "", "", err
		}
		timeMin = parsed.UTC().Format(time.RFC3339)
	}
	if end != "" {
		parsed, err := parseISO(end)
		if err != nil {
			return "", "", err
		}
		timeMax = parsed.UTC().Format(time.RFC3339)
	}
	return timeMin, timeMax, nil
}

func parseISO(value string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("calendar: unrecognized time %q", value)
}
