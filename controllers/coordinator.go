// controllers/coordinator.go
package controllers

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"pot-luck/models"

	"github.com/google/uuid"
)

// HTTPCoordinator talks to a real randomness coordinator service: one JSON
// POST per request, response carries the request id. The coordinator calls
// back to /api/vrf/fulfillments on its own schedule.
type HTTPCoordinator struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewHTTPCoordinator(url, token string) *HTTPCoordinator {
	return &HTTPCoordinator{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPCoordinator) RequestRandomWords(ctx context.Context, req models.VRFRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/requests", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("X-Oracle-Token", c.Token)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("coordinator request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("coordinator returned status %d", resp.StatusCode)
	}

	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("coordinator response: %w", err)
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("coordinator response missing request_id")
	}
	return out.RequestID, nil
}

// LocalCoordinator simulates the oracle in-process so the whole loop runs
// without external infrastructure. It hands out a uuid request id and, after
// Delay, fulfills it with a crypto/rand word through the Fulfill callback.
type LocalCoordinator struct {
	Delay   time.Duration
	Fulfill func(ctx context.Context, requestID string, words []uint64) (string, error)
}

func NewLocalCoordinator(delay time.Duration) *LocalCoordinator {
	return &LocalCoordinator{Delay: delay}
}

func (c *LocalCoordinator) RequestRandomWords(ctx context.Context, req models.VRFRequest) (string, error) {
	if c.Fulfill == nil {
		return "", fmt.Errorf("local coordinator has no fulfiller wired")
	}
	requestID := uuid.NewString()

	numWords := req.NumWords
	if numWords == 0 {
		numWords = 1
	}
	words := make([]uint64, numWords)
	for i := range words {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generate random word: %w", err)
		}
		words[i] = binary.BigEndian.Uint64(buf[:])
	}

	go func() {
		time.Sleep(c.Delay)
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.Fulfill(fctx, requestID, words); err != nil {
			log.Printf("local coordinator fulfillment %s failed: %v", requestID, err)
		}
	}()
	return requestID, nil
}
