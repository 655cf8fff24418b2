package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// PushSender delivers one push notification. APNs is the real
// implementation; tests swap in a fake.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

const defaultAPNSHost = "https://api.push.apple.com"

// Apple rejects provider tokens older than an hour; refresh a bit
// before that.
const providerTokenLifetime = 50 * time.Minute

// APNSClient sends alert pushes through Apple's provider API,
// authenticating with an ES256 provider token.
type APNSClient struct {
	host   string
	keyID  string
	teamID string
	topic  string
	key    *ecdsa.PrivateKey
	client *http.Client

	mu          sync.Mutex
	cachedToken string
	tokenMinted time.Time
}

// NewAPNSClientFromEnv reads APNS_KEY_PATH (a .p8 file), APNS_KEY_ID,
// APNS_TEAM_ID, APNS_TOPIC and optionally APNS_HOST.
func NewAPNSClientFromEnv() (*APNSClient, error) {
	keyPath := os.Getenv("APNS_KEY_PATH")
	keyID := os.Getenv("APNS_KEY_ID")
	teamID := os.Getenv("APNS_TEAM_ID")
	topic := os.Getenv("APNS_TOPIC")
	if keyPath == "" || keyID == "" || teamID == "" || topic == "" {
		return nil, fmt.Errorf("APNS_KEY_PATH, APNS_KEY_ID, APNS_TEAM_ID and APNS_TOPIC must be set")
	}

	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading APNs key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing APNs key: %w", err)
	}

	host := os.Getenv("APNS_HOST")
	if host == "" {
		host = defaultAPNSHost
	}

	return &APNSClient{
		host:   host,
		keyID:  keyID,
		teamID: teamID,
		topic:  topic,
		key:    key,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *APNSClient) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && time.Since(c.tokenMinted) < providerTokenLifetime {
		return c.cachedToken, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.teamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = c.keyID

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", err
	}

	c.cachedToken = signed
	c.tokenMinted = now
	return signed, nil
}

func (c *APNSClient) Send(ctx context.Context, deviceToken, title, body string) error {
	providerToken, err := c.providerToken()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{
				"title": title,
				"body":  body,
			},
			"sound": "default",
		},
	})
	if err != nil {
		return err
	}

	url := c.host + "/3/device/" + deviceToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+providerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apns-topic", c.topic)
	req.Header.Set("apns-push-type", "alert")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// APNs replies with a small JSON body naming the reason.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("APNs rejected push (status %d): %s", resp.StatusCode, respBody)
		return fmt.Errorf("apns status %d", resp.StatusCode)
	}

	return nil
}
