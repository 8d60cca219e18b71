package webhooks

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"time"
)

// Telnyx signs webhooks with Ed25519 over "<timestamp>|<body>"; the public
// key comes from the portal, base64-encoded.
const signatureTolerance = 5 * time.Minute

func verifySignature(publicKeyB64, signatureB64, timestamp string, body []byte, now time.Time) bool {
	key, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if skew := now.Sub(time.Unix(ts, 0)); skew > signatureTolerance || skew < -signatureTolerance {
		return false
	}
	signed := make([]byte, 0, len(timestamp)+1+len(body))
	signed = append(signed, timestamp...)
	signed = append(signed, '|')
	signed = append(signed, body...)
	return ed25519.Verify(ed25519.PublicKey(key), signed, sig)
}
