package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// maxMeetingMinutes is the provider's per-meeting duration cap (Zoom free
// plan). Sessions longer than this are provisioned as multiple parts.
const maxMeetingMinutes = 40

type ProvisionedMeeting struct {
	MeetingRef string
	JoinURL    string
}

// MeetingProvider provisions one video meeting per call.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic string, startTime time.Time, durationMinutes int, hostName string) (*ProvisionedMeeting, error)
}

// ZoomMeetingService talks to the Zoom server-to-server OAuth API.
type ZoomMeetingService struct {
	baseURL      string
	oauthURL     string
	accountID    string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewZoomMeetingService(accountID, clientID, clientSecret string) *ZoomMeetingService {
	return &ZoomMeetingService{
		baseURL:      "https://api.zoom.us/v2",
		oauthURL:     "https://zoom.us/oauth/token",
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

type zoomTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type zoomMeetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

func (s *ZoomMeetingService) accessToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf(
		"%s?grant_type=account_credentials&account_id=%s",
		s.oauthURL,
		url.QueryEscape(s.accountID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: zoom token request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: zoom token status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	var token zoomTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: zoom token decode: %v", ErrUpstreamUnavailable, err)
	}
	return token.AccessToken, nil
}

func (s *ZoomMeetingService) CreateMeeting(
	ctx context.Context,
	topic string,
	startTime time.Time,
	durationMinutes int,
	hostName string,
) (*ProvisionedMeeting, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"topic":      topic,
		"type":       2,
		"start_time": startTime.UTC().Format(time.RFC3339),
		"duration":   durationMinutes,
		"agenda":     fmt.Sprintf("Tutoring session by %s", hostName),
		"settings": map[string]any{
			"host_video":        true,
			"participant_video": true,
			"join_before_host":  true,
			"approval_type":     0,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/users/me/meetings",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: zoom create meeting: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: zoom create meeting status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, respBody)
	}

	var meeting zoomMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return nil, fmt.Errorf("%w: zoom create meeting decode: %v", ErrUpstreamUnavailable, err)
	}
	if meeting.ID == 0 || meeting.JoinURL == "" {
		return nil, fmt.Errorf("%w: zoom create meeting returned incomplete payload", ErrUpstreamUnavailable)
	}

	return &ProvisionedMeeting{
		MeetingRef: fmt.Sprintf("%d", meeting.ID),
		JoinURL:    meeting.JoinURL,
	}, nil
}
