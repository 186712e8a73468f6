package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secretKey.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secretKey, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignatureHeader builds the X-Webhook-Signature value.
// Format: t=<unix seconds>,v1=<hex HMAC-SHA256 of "<unix seconds>.<body>">
func (s *HMACSignatureService) SignatureHeader(secretKey string, timestamp int64, body string) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, s.Sign(secretKey, signedPayload(timestamp, body)))
}

// VerifyHeader checks a received X-Webhook-Signature header against body.
// A zero tolerance disables the timestamp age check.
func (s *HMACSignatureService) VerifyHeader(secretKey, header, body string, tolerance time.Duration, now time.Time) error {
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	if tolerance > 0 && now.Sub(time.Unix(ts, 0)) > tolerance {
		return errors.New("signature timestamp outside tolerance")
	}
	payload := signedPayload(ts, body)
	for _, sig := range sigs {
		if s.Verify(secretKey, payload, sig) {
			return nil
		}
	}
	return errors.New("no matching signature")
}

func signedPayload(timestamp int64, body string) string {
	return strconv.FormatInt(timestamp, 10) + "." + body
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		ts   int64
		sigs []string
		err  error
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("parsing signature timestamp: %w", err)
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, errors.New("malformed signature header")
	}
	return ts, sigs, nil
}
