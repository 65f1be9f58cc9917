// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaraba/lcis/internal/disclaimer"
	"github.com/jaraba/lcis/internal/intent"
	"github.com/jaraba/lcis/internal/pipeline"
	"github.com/jaraba/lcis/internal/retrieval"
	"github.com/jaraba/lcis/internal/tool"
	"github.com/jaraba/lcis/internal/validator"
)

func (a *app) newClassifyCmd() *cobra.Command {
	var in tool.InputClassifyLegalIntent

	cmd := &cobra.Command{
		Use:   "classify [query]",
		Short: "Classify the legal intent of a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 || (in.Action == "" && in.Vertical == "") {
				q, err := textArg(cmd, args)
				if err != nil {
					return err
				}
				in.Query = q
			}
			_, out, err := a.toolset().ClassifyLegalIntent(cmd.Context(), nil, in)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVar(&in.Vertical, "vertical", "", "Product vertical of the caller")
	cmd.Flags().StringVar(&in.Action, "action", "", "Agent action being run")
	return cmd
}

func (a *app) newEnrichCmd() *cobra.Command {
	var (
		file string
		in   tool.InputEnrichLegalRetrieval
	)

	cmd := &cobra.Command{
		Use:   "enrich --file hits.yaml",
		Short: "Rank retrieved legal documents by normative authority",
		Long: `Rank the retrieval hits in a YAML or JSON file. The file holds a list of hits,
each with a score and a payload (title, status_legal, publication_date,
norm_type, autonomous_community, subject), optionally under a "results" or
"hits" key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read documents: %w", err)
			}
			in.Documents = string(data)
			_, out, err := a.toolset().EnrichLegalRetrieval(cmd.Context(), nil, in)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with the retrieval hits")
	cmd.Flags().StringVar(&in.Territory, "territory", "", "Autonomous community of the user")
	cmd.Flags().StringVar(&in.QueryDate, "query-date", "", "Reference date for recency (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVar(&in.SubjectAreas, "area", nil, "Subject area of the query (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) newPromptCmd() *cobra.Command {
	var in tool.InputBuildCoherencePrompt

	cmd := &cobra.Command{
		Use:   "prompt [base prompt]",
		Short: "Prepend the legal coherence rules to a system prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				in.BasePrompt, _ = textArg(cmd, args)
			}
			_, out, err := a.toolset().BuildCoherencePrompt(cmd.Context(), nil, in)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVar(&in.Action, "action", "", "Agent action being run")
	cmd.Flags().StringVar(&in.Vertical, "vertical", "", "Product vertical of the caller")
	cmd.Flags().StringVar(&in.Territory, "territory", "", "Autonomous community of the user")
	cmd.Flags().BoolVar(&in.Force, "force", false, "Apply the rules even when action and vertical do not require them")
	return cmd
}

func (a *app) newValidateCmd() *cobra.Command {
	var in tool.InputValidateLegalOutput

	cmd := &cobra.Command{
		Use:   "validate [answer]",
		Short: "Validate a generated legal answer",
		Long:  "Validate an answer given as arguments or on stdin, and print the score, findings and gate action.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			in.Output = text
			_, out, err := a.toolset().ValidateLegalOutput(cmd.Context(), nil, in)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVar(&in.UserQuery, "query", "", "User query the answer responds to")
	cmd.Flags().IntVar(&in.RetryCount, "retry", 0, "Regenerations already attempted")
	cmd.Flags().StringVar(&in.AgentID, "agent", "", "Calling agent, for logs")
	cmd.Flags().StringVar(&in.Action, "action", "", "Agent action, for logs")
	return cmd
}

func (a *app) newDisclaimerCmd() *cobra.Command {
	var score float64

	cmd := &cobra.Command{
		Use:   "disclaimer [answer]",
		Short: "Append the legal disclaimer to an answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			in := tool.InputEnforceLegalDisclaimer{Output: text}
			if cmd.Flags().Changed("score") {
				in.Score = &score
			}
			_, out, err := a.toolset().EnforceLegalDisclaimer(cmd.Context(), nil, in)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().Float64Var(&score, "score", 0, "Coherence score of the answer; below the threshold the confidence index is shown")
	return cmd
}

// checkResult is what the check command reports.
type checkResult struct {
	Intent           intent.Classification `yaml:"classification"`
	SystemPrompt     string                `yaml:"system_prompt"`
	Validation       *validator.Result     `yaml:"validation,omitempty"`
	DisclaimerSource disclaimer.Source     `yaml:"disclaimer_source,omitempty"`
	Output           string                `yaml:"output"`
}

func (a *app) newCheckCmd() *cobra.Command {
	var (
		req       pipeline.Request
		queryDate string
		docsFile  string
		retry     int
	)

	cmd := &cobra.Command{
		Use:   "check --query QUERY [answer]",
		Short: "Run one answer through the whole coherence pipeline",
		Long: `Classify the query, build the system prompt from the retrieved documents, then
validate the answer and add the disclaimer the intent calls for. The answer is
read from the arguments or stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			if queryDate != "" {
				d, err := time.Parse(time.DateOnly, queryDate)
				if err != nil {
					return fmt.Errorf("invalid --query-date %q: %w", queryDate, err)
				}
				req.QueryDate = d
			}
			if docsFile != "" {
				docs, err := retrieval.LoadFile(docsFile)
				if err != nil {
					return err
				}
				req.Documents = docs
			}

			p := pipeline.New(nil, a.cfg, nil, nil, a.logger)
			prep := p.Prepare(req)
			out := p.Finalize(cmd.Context(), prep, req, answer, retry, nil)
			return a.write(cmd, checkResult{
				Intent:           prep.Classification,
				SystemPrompt:     prep.SystemPrompt,
				Validation:       out.Validation,
				DisclaimerSource: out.DisclaimerSource,
				Output:           out.Output,
			})
		},
	}
	cmd.Flags().StringVarP(&req.Query, "query", "q", "", "User query")
	cmd.Flags().StringVar(&req.Vertical, "vertical", "", "Product vertical of the caller")
	cmd.Flags().StringVar(&req.Action, "action", "", "Agent action being run")
	cmd.Flags().StringVar(&req.AgentID, "agent", "", "Calling agent, for logs")
	cmd.Flags().StringVar(&req.SystemPrompt, "system-prompt", "", "Base system prompt")
	cmd.Flags().StringVar(&req.Territory, "territory", "", "Autonomous community of the user")
	cmd.Flags().StringVar(&queryDate, "query-date", "", "Reference date for recency (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVar(&req.SubjectAreas, "area", nil, "Subject area of the query (repeatable)")
	cmd.Flags().StringVar(&docsFile, "documents", "", "YAML or JSON file with the retrieval hits")
	cmd.Flags().IntVar(&retry, "retry", 0, "Regenerations already attempted")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
