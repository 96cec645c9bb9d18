package mpesa

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gkash/gkash_ussd/internal/config"
	"github.com/gkash/gkash_ussd/internal/sms"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	timestampLayout = "20060102150405"
)

// Client talks to the Daraja API for STK push collections and B2C
// disbursements.
type Client struct {
	cfg     config.Mpesa
	baseURL string
	client  *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient builds a Daraja client with a bounded request timeout.
func NewClient(cfg config.Mpesa, timeout time.Duration) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("mpesa consumer credentials are required")
	}
	baseURL := sandboxBaseURL
	if cfg.Env == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// RequestCollection initiates an STK push against the user's wallet.
func (c *Client) RequestCollection(ctx context.Context, input CollectionInput) (Result, error) {
	msisdn, err := sms.FormatMSISDN(input.Phone)
	if err != nil {
		return Result{}, err
	}

	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            input.Amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  input.Reference,
		TransactionDesc:   input.Description,
	}

	var decoded stkPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", payload, &decoded); err != nil {
		return Result{}, err
	}
	if decoded.ResponseCode != "0" {
		return Result{}, fmt.Errorf("stk push rejected: %s", decoded.ResponseDesc)
	}
	return Result{Reference: decoded.CheckoutRequestID, Status: "accepted"}, nil
}

type b2cRequest struct {
	InitiatorName      string `json:"InitiatorName"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	Amount             int64  `json:"Amount"`
	PartyA             string `json:"PartyA"`
	PartyB             string `json:"PartyB"`
	Remarks            string `json:"Remarks"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
	Occasion           string `json:"Occasion"`
}

type b2cResponse struct {
	ConversationID         string `json:"ConversationID"`
	OriginatorConversation string `json:"OriginatorConversationID"`
	ResponseCode           string `json:"ResponseCode"`
	ResponseDesc           string `json:"ResponseDescription"`
}

// RequestDisbursement initiates a B2C payment to the user's wallet.
func (c *Client) RequestDisbursement(ctx context.Context, input DisbursementInput) (Result, error) {
	msisdn, err := sms.FormatMSISDN(input.Phone)
	if err != nil {
		return Result{}, err
	}

	credential, err := c.securityCredential()
	if err != nil {
		return Result{}, err
	}

	remarks := input.Remarks
	if remarks == "" {
		remarks = "Withdrawal"
	}

	payload := b2cRequest{
		InitiatorName:      c.cfg.InitiatorName,
		SecurityCredential: credential,
		CommandID:          "BusinessPayment",
		Amount:             input.Amount,
		PartyA:             c.cfg.Shortcode,
		PartyB:             msisdn,
		Remarks:            remarks,
		QueueTimeOutURL:    c.cfg.CallbackURL,
		ResultURL:          c.cfg.CallbackURL,
		Occasion:           "Withdrawal",
	}

	var decoded b2cResponse
	if err := c.post(ctx, "/mpesa/b2c/v1/paymentrequest", payload, &decoded); err != nil {
		return Result{}, err
	}
	if decoded.ResponseCode != "0" {
		return Result{}, fmt.Errorf("b2c rejected: %s", decoded.ResponseDesc)
	}
	return Result{Reference: decoded.ConversationID, Status: "accepted"}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("mpesa read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mpesa request failed: status %d: %s", resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("mpesa auth failed: status %d", resp.StatusCode)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("mpesa auth decode: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", fmt.Errorf("mpesa auth returned empty token")
	}

	c.accessToken = decoded.AccessToken
	// Tokens are valid for an hour; refresh a minute early.
	c.tokenExpiry = time.Now().Add(59 * time.Minute)
	return c.accessToken, nil
}

// securityCredential encrypts the initiator password with the provider's
// public key, as required for B2C calls.
func (c *Client) securityCredential() (string, error) {
	if c.cfg.InitiatorPassword == "" {
		return "", fmt.Errorf("mpesa initiator password is required for disbursements")
	}
	publicKey := strings.ReplaceAll(c.cfg.PublicKey, `\n`, "\n")
	if publicKey == "" {
		return "", fmt.Errorf("mpesa public key is required for disbursements")
	}
	if !strings.Contains(publicKey, "BEGIN") {
		publicKey = "-----BEGIN PUBLIC KEY-----\n" + publicKey + "\n-----END PUBLIC KEY-----"
	}

	block, _ := pem.Decode([]byte(publicKey))
	if block == nil {
		return "", fmt.Errorf("mpesa public key is not valid PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parse mpesa public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("mpesa public key is not RSA")
	}

	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, []byte(c.cfg.InitiatorPassword))
	if err != nil {
		return "", fmt.Errorf("encrypt initiator password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}
