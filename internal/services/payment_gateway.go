package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PaymentGateway initiates a prepayment and yields the provider transaction
// id used as the idempotency key for all later reconciliation.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, amount int64, payerRef string) (transactionID string, err error)
}

// DarajaGateway drives the M-Pesa STK push flow.
type DarajaGateway struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	httpClient     *http.Client
	now            func() time.Time
}

func NewDarajaGateway(consumerKey, consumerSecret, shortcode, passkey, callbackURL string) *DarajaGateway {
	return &DarajaGateway{
		baseURL:        "https://api.safaricom.co.ke",
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		shortcode:      shortcode,
		passkey:        passkey,
		callbackURL:    callbackURL,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		now:            time.Now,
	}
}

type darajaTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type stkPushResponse struct {
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
}

func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		g.baseURL+"/oauth/v1/generate?grant_type=client_credentials",
		nil,
	)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.consumerKey, g.consumerSecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: daraja token request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: daraja token status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	var token darajaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: daraja token decode: %v", ErrUpstreamUnavailable, err)
	}
	return token.AccessToken, nil
}

// InitiatePayment sends an STK push to the payer's phone and returns the
// CheckoutRequestID the gateway will reference in its result callback.
func (g *DarajaGateway) InitiatePayment(
	ctx context.Context,
	amount int64,
	payerRef string,
) (string, error) {
	accessToken, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	timestamp := g.now().UTC().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + timestamp))
	phone := normalizePhoneNumber(payerRef)

	payload := map[string]any{
		"BusinessShortCode": g.shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            g.shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.callbackURL,
		"AccountReference":  "TutorAppPayment",
		"TransactionDesc":   "Token package purchase",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/mpesa/stkpush/v1/processrequest",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: stk push request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: stk push status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, respBody)
	}

	var push stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&push); err != nil {
		return "", fmt.Errorf("%w: stk push decode: %v", ErrUpstreamUnavailable, err)
	}
	if push.CheckoutRequestID == "" {
		return "", fmt.Errorf("%w: stk push returned no CheckoutRequestID: %s", ErrUpstreamUnavailable, push.ResponseDesc)
	}
	return push.CheckoutRequestID, nil
}

// normalizePhoneNumber converts local Kenyan formats to the 254... form the
// gateway expects.
func normalizePhoneNumber(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	return phone
}
