package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	txHashPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ValidTxHash reports whether s looks like an EVM transaction hash.
func ValidTxHash(s string) bool { return txHashPattern.MatchString(s) }

// ValidAddress reports whether s looks like an EVM address.
func ValidAddress(s string) bool { return addressPattern.MatchString(s) }

// NormalizeAddress lowercases an address for case-insensitive comparison.
func NormalizeAddress(s string) string { return strings.ToLower(s) }

// VerifiedTransaction is the normalized receipt summary persisted as the
// audit payload on a submission.
type VerifiedTransaction struct {
	TransactionHash string `json:"transaction_hash"`
	Status          string `json:"status"` // SUCCESS | FAILED
	Name            string `json:"name"`   // CONTRACTCALL | CONTRACTCREATE
	EntityID        string `json:"entity_id,omitempty"`
	BlockNumber     string `json:"block_number"`
	ChargedTxFee    uint64 `json:"charged_tx_fee"`
	MaxFee          string `json:"max_fee"`
}

type receiptLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
}

type txReceipt struct {
	Status            string       `json:"status"`
	From              string       `json:"from"`
	To                string       `json:"to"`
	BlockNumber       string       `json:"blockNumber"`
	GasUsed           string       `json:"gasUsed"`
	EffectiveGasPrice string       `json:"effectiveGasPrice"`
	Logs              []receiptLog `json:"logs"`
}

// TransactionVerifier queries the chain RPC endpoint for a transaction
// receipt and applies the proof matching rules. It never self-retries —
// transient failures surface to the caller, who resubmits.
type TransactionVerifier struct {
	RPCURL     string
	HTTPClient *http.Client
}

func NewTransactionVerifier(rpcURL string) *TransactionVerifier {
	return &TransactionVerifier{
		RPCURL: rpcURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Verify checks that txHash references a successful transaction sent by
// expectedFrom that touched expectedTo, either as the direct call target or
// as the emitter of one of the transaction's logs (router-mediated calls).
// Failures come back as PipelineError: verification_failed for definitive
// rejections, upstream_transient for RPC trouble.
func (v *TransactionVerifier) Verify(ctx context.Context, txHash, expectedFrom, expectedTo string) (*VerifiedTransaction, error) {
	if !ValidTxHash(txHash) {
		return nil, pipelineErr(ErrKindVerificationFailed,
			"Invalid transaction hash format. Expected 0x followed by 64 hex characters.")
	}

	normalizedFrom := NormalizeAddress(expectedFrom)
	normalizedTo := NormalizeAddress(expectedTo)

	receipt, err := v.fetchReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, pipelineErr(ErrKindVerificationFailed, "Transaction not found on blockchain")
	}

	if receipt.Status == "0x0" {
		return nil, pipelineErr(ErrKindVerificationFailed, "Transaction was reverted")
	}

	if normalizedFrom != "" && NormalizeAddress(receipt.From) != normalizedFrom {
		return nil, pipelineErr(ErrKindVerificationFailed, fmt.Sprintf(
			"Transaction from address mismatch. Expected: %s, Got: %s", expectedFrom, receipt.From))
	}

	if normalizedTo != "" && !matchesCounterparty(receipt, normalizedTo) {
		got := receipt.To
		if got == "" {
			got = "contract creation"
		}
		return nil, pipelineErr(ErrKindVerificationFailed, fmt.Sprintf(
			"Transaction to address mismatch. Expected: %s, Got: %s", expectedTo, got))
	}

	return normalizeReceipt(txHash, receipt), nil
}

// matchesCounterparty accepts a direct call to the expected address, or a
// transaction in which the expected address emitted a topical log — the
// latter covers swaps routed through an intermediary. Logs without topics
// don't count toward the match.
func matchesCounterparty(receipt *txReceipt, normalizedTo string) bool {
	if receipt.To != "" && NormalizeAddress(receipt.To) == normalizedTo {
		return true
	}
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		if NormalizeAddress(l.Address) == normalizedTo {
			return true
		}
	}
	return false
}

func normalizeReceipt(txHash string, receipt *txReceipt) *VerifiedTransaction {
	name := "CONTRACTCALL"
	if receipt.To == "" {
		name = "CONTRACTCREATE"
	}

	gasUsed := parseHexQuantity(receipt.GasUsed)
	gasPrice := parseHexQuantity(receipt.EffectiveGasPrice)

	return &VerifiedTransaction{
		TransactionHash: txHash,
		Status:          "SUCCESS",
		Name:            name,
		EntityID:        receipt.To,
		BlockNumber:     strconv.FormatUint(parseHexQuantity(receipt.BlockNumber), 10),
		ChargedTxFee:    gasUsed * gasPrice,
		MaxFee:          strconv.FormatUint(gasUsed, 10),
	}
}

func parseHexQuantity(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

func (v *TransactionVerifier) fetchReceipt(ctx context.Context, txHash string) (*txReceipt, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_getTransactionReceipt",
		"params":  []string{txHash},
	})
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to build RPC request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.RPCURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to create RPC request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "RPC endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipelineErr(ErrKindUpstreamTransient,
			fmt.Sprintf("RPC endpoint returned status %d", resp.StatusCode))
	}

	var rpcResp struct {
		Result *txReceipt `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to decode RPC response", err)
	}
	if rpcResp.Error != nil {
		return nil, pipelineErr(ErrKindUpstreamTransient,
			fmt.Sprintf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}

	return rpcResp.Result, nil
}
