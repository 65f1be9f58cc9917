// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/conversation"
)

// MetadataTrackConversationTurn describes the track_conversation_turn tool.
var MetadataTrackConversationTurn = &mcp.Tool{
	Name: "track_conversation_turn",
	Description: "Check a new answer against the legal positions stated earlier in the same conversation " +
		"(competences, EU primacy, vigencia, organic law reserve), then record the turn. " +
		"Omit session_id to start a new conversation; the returned session_id identifies it.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"output"},
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Conversation to continue. Empty starts a new one.",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The user query of this turn",
			},
			"output": map[string]interface{}{
				"type":        "string",
				"description": "The answer delivered in this turn",
			},
		},
	},
}

// InputTrackConversationTurn is the input for the TrackConversationTurn tool.
type InputTrackConversationTurn struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Output    string `json:"output"`
}

// OutputTrackConversationTurn is the output for the TrackConversationTurn tool.
type OutputTrackConversationTurn struct {
	SessionID string                 `json:"session_id"`
	Turn      int                    `json:"turn"`
	Coherence conversation.Coherence `json:"coherence"`
	// Assertions are the positions extracted from this turn.
	Assertions []conversation.Assertion `json:"assertions"`
}

// TrackConversationTurn checks and records one turn.
func (t *Toolset) TrackConversationTurn(_ context.Context, _ *mcp.CallToolRequest, input InputTrackConversationTurn) (*mcp.CallToolResult, OutputTrackConversationTurn, error) {
	if input.Output == "" {
		return nil, OutputTrackConversationTurn{}, fmt.Errorf("output is required")
	}
	id, err := t.sessions.Ensure(input.SessionID)
	if err != nil {
		return nil, OutputTrackConversationTurn{}, fmt.Errorf("session %q: %w", input.SessionID, err)
	}

	out := OutputTrackConversationTurn{SessionID: id}
	err = t.sessions.With(id, func(c *conversation.Context) error {
		out.Coherence = c.CheckCrossTurnCoherence(input.Output)
		out.Assertions = c.AddTurn(input.Query, input.Output)
		out.Turn = c.TurnCount()
		return nil
	})
	if err != nil {
		return nil, OutputTrackConversationTurn{}, err
	}
	if out.Assertions == nil {
		out.Assertions = []conversation.Assertion{}
	}
	for _, c := range out.Coherence.Contradictions {
		t.metrics.RecordContradiction(string(c.Type))
	}
	return nil, out, nil
}

// MetadataResetConversation describes the reset_conversation tool.
var MetadataResetConversation = &mcp.Tool{
	Name:        "reset_conversation",
	Description: "Forget the turns and assertions of a conversation. With delete set, the session itself is removed.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"session_id"},
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Conversation to reset",
			},
			"delete": map[string]interface{}{
				"type":        "boolean",
				"description": "Remove the session instead of emptying it",
			},
		},
	},
}

// InputResetConversation is the input for the ResetConversation tool.
type InputResetConversation struct {
	SessionID string `json:"session_id"`
	Delete    bool   `json:"delete"`
}

// OutputResetConversation is the output for the ResetConversation tool.
type OutputResetConversation struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// ResetConversation empties or removes a session.
func (t *Toolset) ResetConversation(_ context.Context, _ *mcp.CallToolRequest, input InputResetConversation) (*mcp.CallToolResult, OutputResetConversation, error) {
	if input.SessionID == "" {
		return nil, OutputResetConversation{}, fmt.Errorf("session_id is required")
	}
	if input.Delete {
		if !t.sessions.Delete(input.SessionID) {
			return nil, OutputResetConversation{}, fmt.Errorf("session %q: %w", input.SessionID, conversation.ErrSessionNotFound)
		}
		return nil, OutputResetConversation{SessionID: input.SessionID, Deleted: true}, nil
	}
	err := t.sessions.With(input.SessionID, func(c *conversation.Context) error {
		c.Reset()
		return nil
	})
	if err != nil {
		return nil, OutputResetConversation{}, fmt.Errorf("session %q: %w", input.SessionID, err)
	}
	return nil, OutputResetConversation{SessionID: input.SessionID}, nil
}
