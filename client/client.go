// Package client is the HTTP gateway client for the aggregator network.
// It submits signed commitments and fetches inclusion proofs; everything
// it returns is cross-checked by the transfer package, never trusted.
package client

import (
	"fmt"
	"net/http"

	"AmberVault/internal/protocol"
	"AmberVault/internal/transfer"
)

// Client connects to an aggregator gateway.
type Client struct {
	gatewayAddr string       // gatewayAddr is the host:port of the gateway
	scheme      string       // scheme is http, or https when the transport requires TLS
	networkID   string       // networkID is the chain identifier reported by /status
	httpc       *http.Client // httpc is the underlying HTTP(/3) client
}

// New creates a client connected to a gateway.
// It fetches the network ID from the gateway's /status endpoint.
func New(gatewayAddr string, useHTTP3 bool) (*Client, error) {
	c := &Client{
		gatewayAddr: gatewayAddr,
		scheme:      schemeFor(useHTTP3),
		httpc:       newHTTPClient(useHTTP3),
	}

	var status struct {
		NetworkID string `json:"networkId"`
	}

	if err := c.httpGet(c.url("/status"), &status, nil); err != nil {
		return nil, fmt.Errorf("get gateway status:\n%w", err)
	}

	if status.NetworkID == "" {
		return nil, fmt.Errorf("gateway reported empty network ID")
	}

	c.networkID = status.NetworkID

	return c, nil
}

// NetworkID returns the chain identifier the gateway serves.
func (c *Client) NetworkID() string {
	return c.networkID
}

// url builds a gateway URL for the given path.
func (c *Client) url(path string) string {
	return c.scheme + "://" + c.gatewayAddr + path
}

// submitRequest is the wire shape of a commitment submission.
type submitRequest struct {
	RequestID protocol.Hash     `json:"requestId"`
	Signature protocol.HexBytes `json:"signature"`
	PublicKey protocol.HexBytes `json:"publicKey"`
	Payload   protocol.HexBytes `json:"payload"`
}

// SubmitCommitment submits a signed request to the aggregator.
// A 409 means a request with this ID already exists; that is reported as
// SubmitDuplicate, not as an error, because first-writer-wins for a given
// request ID is arbitrated by the aggregator alone.
func (c *Client) SubmitCommitment(requestID protocol.Hash, signature, publicKey, payload []byte) (transfer.SubmitStatus, error) {
	body := submitRequest{
		RequestID: requestID,
		Signature: signature,
		PublicKey: publicKey,
		Payload:   payload,
	}

	status, err := c.httpPostJSON(c.url("/commitments"), body, nil)
	if err != nil {
		return 0, fmt.Errorf("submit commitment:\n%w", err)
	}

	switch status {
	case http.StatusAccepted, http.StatusOK:
		return transfer.SubmitAccepted, nil
	case http.StatusConflict:
		return transfer.SubmitDuplicate, nil
	default:
		return 0, fmt.Errorf("commitment rejected: status %d", status)
	}
}

// InclusionProof fetches the current proof for a request ID.
// A 404 from the gateway means the request is unknown to the tree; that is
// the same "not yet finalized" answer as an explicit exclusion proof, so
// it is returned as a proof with a nil authenticator.
func (c *Client) InclusionProof(requestID protocol.Hash) (*protocol.InclusionProof, error) {
	var proof protocol.InclusionProof

	unknown := false
	notFound := func() error {
		unknown = true
		return nil
	}

	if err := c.httpGet(c.url("/proofs/"+requestID.String()), &proof, notFound); err != nil {
		return nil, fmt.Errorf("get inclusion proof:\n%w", err)
	}

	if unknown {
		return &protocol.InclusionProof{}, nil
	}

	return &proof, nil
}
