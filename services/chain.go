package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QuestView is the on-chain state of a quest as returned by the relayer.
type QuestView struct {
	ID                  int64  `json:"id"`
	Status              string `json:"status"`
	StatusValue         int    `json:"status_value"`
	AssignedParticipant string `json:"assigned_participant"`
	Protocol            string `json:"protocol"`
	Expiry              int64  `json:"expiry"`
	QuestType           string `json:"quest_type,omitempty"`
}

// ParticipantProgress mirrors the on-chain acceptance/completion flags for a
// (quest, participant) pair.
type ParticipantProgress struct {
	Accepted  bool `json:"accepted"`
	Completed bool `json:"completed"`
}

// CompletionResult is the receipt of a recordCompletion contract call.
type CompletionResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// QuestChain is the ledger-side collaborator: quest reads, progress reads,
// and the completion recorder. RecordCompletion must be idempotent on the
// relayer side — the sweeper may replay it for the same quest/participant.
type QuestChain interface {
	GetQuest(ctx context.Context, questID int64) (*QuestView, error)
	GetParticipantProgress(ctx context.Context, questID int64, participant string) (*ParticipantProgress, error)
	RecordCompletion(ctx context.Context, questID int64, participant, evidenceURI string) (*CompletionResult, error)
}

// QuestChainClient talks to the contract relayer over HTTP with a service
// token. Lifecycle is owned by main; handlers and workers share one instance.
type QuestChainClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewQuestChainClient(baseURL, token string) *QuestChainClient {
	return &QuestChainClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *QuestChainClient) GetQuest(ctx context.Context, questID int64) (*QuestView, error) {
	var quest QuestView
	if err := c.getJSON(ctx, fmt.Sprintf("%s/quests/%d", c.BaseURL, questID), &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

func (c *QuestChainClient) GetParticipantProgress(ctx context.Context, questID int64, participant string) (*ParticipantProgress, error) {
	var progress ParticipantProgress
	url := fmt.Sprintf("%s/quests/%d/progress/%s", c.BaseURL, questID, NormalizeAddress(participant))
	if err := c.getJSON(ctx, url, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (c *QuestChainClient) RecordCompletion(ctx context.Context, questID int64, participant, evidenceURI string) (*CompletionResult, error) {
	payload, err := json.Marshal(map[string]string{
		"participant":  participant,
		"evidence_uri": evidenceURI,
	})
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to encode completion payload", err)
	}

	url := fmt.Sprintf("%s/quests/%d/complete", c.BaseURL, questID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to create completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "completion recorder unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, pipelineErr(ErrKindUpstreamTransient,
			fmt.Sprintf("completion recorder returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result CompletionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pipelineWrap(ErrKindUpstreamTransient, "failed to decode completion response", err)
	}
	if result.TransactionHash == "" {
		return nil, pipelineErr(ErrKindUpstreamTransient, "completion recorder returned no transaction hash")
	}
	return &result, nil
}

// IssueQuest asks the relayer to create a quest on-chain and returns the
// ledger-assigned quest id. Satisfies QuestIssuer.
func (c *QuestChainClient) IssueQuest(ctx context.Context, issue QuestIssueRequest) (int64, error) {
	payload, err := json.Marshal(issue)
	if err != nil {
		return 0, pipelineWrap(ErrKindUpstreamTransient, "failed to encode issue payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/quests", strings.NewReader(string(payload)))
	if err != nil {
		return 0, pipelineWrap(ErrKindUpstreamTransient, "failed to create issue request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, pipelineWrap(ErrKindUpstreamTransient, "relayer unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, pipelineErr(ErrKindUpstreamTransient,
			fmt.Sprintf("relayer returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		QuestID int64 `json:"quest_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, pipelineWrap(ErrKindUpstreamTransient, "failed to decode issue response", err)
	}
	if result.QuestID <= 0 {
		return 0, pipelineErr(ErrKindUpstreamTransient, "relayer returned no quest id")
	}
	return result.QuestID, nil
}

func (c *QuestChainClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pipelineWrap(ErrKindUpstreamTransient, "failed to create request", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return pipelineWrap(ErrKindUpstreamTransient, "relayer unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pipelineErr(ErrKindInvalidInput, "quest not found")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return pipelineErr(ErrKindUpstreamTransient,
			fmt.Sprintf("relayer returned status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pipelineWrap(ErrKindUpstreamTransient, "failed to decode relayer response", err)
	}
	return nil
}
