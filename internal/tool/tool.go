// SPDX-License-Identifier: Apache-2.0

// Package tool exposes the coherence components as MCP tools.
package tool

import (
	"go.uber.org/zap"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jaraba/lcis/internal/config"
	"github.com/jaraba/lcis/internal/conversation"
	"github.com/jaraba/lcis/internal/disclaimer"
	"github.com/jaraba/lcis/internal/intent"
	"github.com/jaraba/lcis/internal/knowledge"
	"github.com/jaraba/lcis/internal/metrics"
	"github.com/jaraba/lcis/internal/normgraph"
	"github.com/jaraba/lcis/internal/promptrule"
	"github.com/jaraba/lcis/internal/validator"
)

// ServerName is the MCP implementation name.
const ServerName = "lcis"

// Toolset holds the components behind the tools. Handlers are safe for
// concurrent use; turns of one session are serialized by the Store.
type Toolset struct {
	classifier *intent.Classifier
	enricher   *normgraph.Enricher
	prompts    *promptrule.Builder
	validator  *validator.Validator
	enforcer   *disclaimer.Enforcer
	sessions   *conversation.Store
	metrics    *metrics.Metrics
}

// New builds a Toolset from cfg. provider, m and logger may be nil.
func New(kb *knowledge.Base, cfg config.Config, provider disclaimer.Provider, m *metrics.Metrics, logger *zap.Logger) *Toolset {
	if kb == nil {
		kb = knowledge.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolset{
		classifier: intent.NewClassifier(),
		enricher:   normgraph.New(kb, cfg.EnricherOptions()),
		prompts:    promptrule.New(kb),
		validator:  validator.New(kb, cfg.ValidatorOptions(), logger.Named("validator")),
		enforcer:   disclaimer.New(provider, cfg.DisclaimerOptions(), logger.Named("disclaimer")),
		sessions:   conversation.NewStore(kb, cfg.Conversation),
		metrics:    m,
	}
}

// Register adds every tool to server.
func (t *Toolset) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataClassifyLegalIntent, t.ClassifyLegalIntent)
	mcp.AddTool(server, MetadataEnrichLegalRetrieval, t.EnrichLegalRetrieval)
	mcp.AddTool(server, MetadataBuildCoherencePrompt, t.BuildCoherencePrompt)
	mcp.AddTool(server, MetadataValidateLegalOutput, t.ValidateLegalOutput)
	mcp.AddTool(server, MetadataEnforceLegalDisclaimer, t.EnforceLegalDisclaimer)
	mcp.AddTool(server, MetadataTrackConversationTurn, t.TrackConversationTurn)
	mcp.AddTool(server, MetadataResetConversation, t.ResetConversation)
}

// NewServer returns an MCP server with the toolset registered.
func NewServer(t *Toolset, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	t.Register(server)
	return server
}
