package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/skip2/go-qrcode"

	"github.com/kelsos/tezos-dapp/internal/network"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

// PairingRequest is the handshake payload offered to the wallet
type PairingRequest struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AppURL    string     `json:"appUrl,omitempty"`
	Network   network.ID `json:"network"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NewPairingRequest creates a request with a fresh pairing ID
func NewPairingRequest(name, appURL string, net network.ID) PairingRequest {
	return PairingRequest{
		ID:        uuid.NewString(),
		Name:      name,
		AppURL:    appURL,
		Network:   net,
		CreatedAt: time.Now().UTC(),
	}
}

// URI encodes the request as a tezos:// deep link a wallet can scan
func (r PairingRequest) URI() (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pairing request: %w", err)
	}

	q := url.Values{}
	q.Set("type", "tzip10")
	q.Set("data", base58.Encode(payload))
	return "tezos://?" + q.Encode(), nil
}

// QRCode renders the pairing URI as a terminal QR code
func (r PairingRequest) QRCode() (string, error) {
	uri, err := r.URI()
	if err != nil {
		return "", err
	}
	qr, err := qrcode.New(uri, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	return qr.ToSmallString(false), nil
}

// DecodePairingURI parses a URI produced by PairingRequest.URI
func DecodePairingURI(uri string) (PairingRequest, error) {
	var req PairingRequest

	u, err := url.Parse(uri)
	if err != nil {
		return req, fmt.Errorf("invalid pairing URI: %w", err)
	}
	if u.Scheme != "tezos" || u.Query().Get("type") != "tzip10" {
		return req, fmt.Errorf("invalid pairing URI: unexpected scheme or type")
	}

	payload, err := base58.Decode(u.Query().Get("data"))
	if err != nil {
		return req, fmt.Errorf("invalid pairing payload: %w", err)
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("invalid pairing payload: %w", err)
	}
	return req, nil
}

// PairingResponse is the wallet's answer: a public key, an address, or both
type PairingResponse struct {
	PublicKey string
	Address   string
}

// ParseResponse reads a public key or address typed or pasted by the user.
// An empty answer rejects the pairing.
func ParseResponse(input string) (PairingResponse, error) {
	s := strings.TrimSpace(input)
	switch {
	case s == "":
		return PairingResponse{}, ErrPairingRejected
	case strings.HasPrefix(s, "edpk"), strings.HasPrefix(s, "sppk"), strings.HasPrefix(s, "p2pk"):
		return PairingResponse{PublicKey: s}, nil
	default:
		return PairingResponse{Address: s}, nil
	}
}

// resolve returns the implicit account address the response grants
func (r PairingResponse) resolve() (string, error) {
	if r.PublicKey != "" {
		derived, err := tezos.AddressFromPublicKey(r.PublicKey)
		if err != nil {
			return "", err
		}
		if r.Address != "" && r.Address != derived {
			return "", fmt.Errorf("public key belongs to %s, not %s", derived, r.Address)
		}
		return derived, nil
	}

	if r.Address == "" {
		return "", ErrPairingRejected
	}
	if !tezos.IsImplicit(r.Address) {
		return "", fmt.Errorf("%w: %s is not an implicit account", tezos.ErrInvalidAddress, r.Address)
	}
	return r.Address, nil
}

// Approver presents a pairing request to the user and waits for the wallet's answer
type Approver interface {
	Approve(ctx context.Context, req PairingRequest) (PairingResponse, error)
}

// ApproverFunc adapts a function to the Approver interface
type ApproverFunc func(ctx context.Context, req PairingRequest) (PairingResponse, error)

func (f ApproverFunc) Approve(ctx context.Context, req PairingRequest) (PairingResponse, error) {
	return f(ctx, req)
}
