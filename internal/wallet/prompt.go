package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// TerminalApprover prints the pairing QR code and reads the wallet's public
// key or address from a line of input.
type TerminalApprover struct {
	In  io.Reader
	Out io.Writer
}

func (a TerminalApprover) Approve(ctx context.Context, req PairingRequest) (PairingResponse, error) {
	uri, err := req.URI()
	if err != nil {
		return PairingResponse{}, err
	}
	qr, err := req.QRCode()
	if err != nil {
		return PairingResponse{}, err
	}

	fmt.Fprintf(a.Out, "Pair %q with your wallet on %s\n\n%s\n%s\n\n", req.Name, req.Network, qr, uri)
	fmt.Fprint(a.Out, "Paste the public key or address your wallet shares (empty to cancel): ")

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(a.In).ReadString('\n')
		if err != nil && line == "" {
			errs <- err
			return
		}
		lines <- line
	}()

	select {
	case <-ctx.Done():
		return PairingResponse{}, ctx.Err()
	case err := <-errs:
		if err == io.EOF {
			return PairingResponse{}, ErrPairingRejected
		}
		return PairingResponse{}, fmt.Errorf("failed to read pairing answer: %w", err)
	case line := <-lines:
		return ParseResponse(line)
	}
}
