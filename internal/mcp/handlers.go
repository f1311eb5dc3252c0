package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toanps/agentvault/internal/model"
)

// RequestInput defines parameters for the vault_request tool.
// Amount is in cents: $25.00 is 2500.
type RequestInput struct {
	Recipient string `json:"recipient" jsonschema:"whitelisted recipient id"`
	Amount    int64  `json:"amount" jsonschema:"amount in cents"`
	Reason    string `json:"reason,omitempty" jsonschema:"what the funds are for"`
}

// RequestOutput is the decision on a fund request.
type RequestOutput struct {
	RequestID string `json:"request_id"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	Rule      string `json:"matched_rule,omitempty"`
	Nonce     uint64 `json:"nonce,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusInput is empty; the tool takes no parameters.
type StatusInput struct{}

// StatusOutput is the agent-visible vault state.
type StatusOutput struct {
	Balance       int64             `json:"balance"`
	Paused        bool              `json:"paused"`
	PoolDailyCap  int64             `json:"pool_daily_cap"`
	PoolSpent     int64             `json:"pool_spent_today"`
	DeadmanOK     bool              `json:"deadman_ok"`
	DeadmanExpiry string            `json:"deadman_expires_at"`
	Recipients    []RecipientStatus `json:"recipients"`
}

// RecipientStatus summarizes one whitelist entry.
type RecipientStatus struct {
	ID               string `json:"id"`
	Label            string `json:"label"`
	Active           bool   `json:"active"`
	RemainingDaily   int64  `json:"remaining_daily"`
	RemainingMonthly int64  `json:"remaining_monthly"`
}

// HistoryInput defines parameters for the vault_history tool.
type HistoryInput struct {
	Count int `json:"count,omitempty" jsonschema:"how many recent transfers to return (default 10)"`
}

// HistoryOutput lists executed transfers, oldest first.
type HistoryOutput struct {
	Transfers []HistoryItem `json:"transfers"`
}

// HistoryItem is one executed transfer.
type HistoryItem struct {
	Nonce     uint64 `json:"nonce"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleRequest(ctx context.Context, req *mcpsdk.CallToolRequest, input RequestInput) (*mcpsdk.CallToolResult, RequestOutput, error) {
	resp := s.orch.Handle(model.Request{
		Identifier: input.Recipient,
		Amount:     input.Amount,
		Reason:     input.Reason,
	})

	out := RequestOutput{
		RequestID: resp.RequestID,
		Outcome:   string(resp.Outcome),
		Message:   resp.Message,
		Rule:      resp.Rule,
	}
	if resp.Receipt != nil {
		out.Nonce = resp.Receipt.Nonce
		out.Timestamp = resp.Receipt.Timestamp.Format(time.RFC3339)
	}

	if resp.Outcome != model.Approve {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input RequestInput) (*mcpsdk.CallToolResult, RequestOutput, error) {
	resp := s.orch.Check(model.Request{
		Identifier: input.Recipient,
		Amount:     input.Amount,
		Reason:     input.Reason,
	})

	out := RequestOutput{
		RequestID: resp.RequestID,
		Outcome:   string(resp.Outcome),
		Message:   resp.Message,
		Rule:      resp.Rule,
	}
	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	balance, err := s.vault.Balance()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	pool := s.vault.GetPoolStatus()
	deadman := s.vault.GetDeadmanStatus()

	out := StatusOutput{
		Balance:       balance,
		Paused:        s.vault.Paused(),
		PoolDailyCap:  pool.Cap,
		PoolSpent:     pool.Spent,
		DeadmanOK:     !deadman.Expired,
		DeadmanExpiry: deadman.ExpiresAt.Format(time.RFC3339),
	}

	for _, r := range s.vault.Recipients() {
		allowance, err := s.vault.RemainingAllowance(r.ID)
		if err != nil {
			continue
		}
		out.Recipients = append(out.Recipients, RecipientStatus{
			ID:               r.ID,
			Label:            r.Label,
			Active:           r.Active,
			RemainingDaily:   allowance.Daily,
			RemainingMonthly: allowance.Monthly,
		})
	}

	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	count := input.Count
	if count <= 0 {
		count = 10
	}

	out := HistoryOutput{Transfers: []HistoryItem{}}
	for _, rec := range s.vault.GetHistory(count) {
		out.Transfers = append(out.Transfers, HistoryItem{
			Nonce:     rec.Nonce,
			Recipient: rec.Recipient,
			Amount:    rec.Amount,
			Memo:      rec.Memo,
			Timestamp: rec.Timestamp.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}
