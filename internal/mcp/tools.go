package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/knowledged/internal/engine"
)

type checkConsistencyInput struct {
	ProjectID     string `json:"project_id" jsonschema:"required,Project identifier scoping the search"`
	Code          string `json:"code" jsonschema:"required,Code fragment to check against stored patterns and designs (max 10000 characters)"`
	ComponentName string `json:"component_name,omitempty" jsonschema:"Optional component name providing context for the check"`
}

type checkConsistencyOutput struct {
	Consistent      bool              `json:"consistent" jsonschema:"True when no issue carries error severity"`
	Issues          []engine.Issue    `json:"issues,omitempty" jsonschema:"Classified findings ordered by detection"`
	MatchedPatterns []engine.Evidence `json:"matched_patterns,omitempty" jsonschema:"Ranked pattern and design matches with previews"`
	Error           *engine.Error     `json:"error,omitempty" jsonschema:"Error envelope, set instead of the payload on failure"`
}

type validateFixInput struct {
	ProjectID      string   `json:"project_id" jsonschema:"required,Project identifier scoping the search"`
	FixDescription string   `json:"fix_description" jsonschema:"required,Description of the proposed fix"`
	CodeChanges    string   `json:"code_changes,omitempty" jsonschema:"Optional code-change text accompanying the fix"`
	RequirementIDs []string `json:"requirement_ids,omitempty" jsonschema:"Optional requirement identifiers the fix claims to address"`
}

type validateFixOutput struct {
	Valid                  bool                           `json:"valid" jsonschema:"True when requirements or design alignment holds"`
	RequirementsAlignment  bool                           `json:"requirements_alignment"`
	DesignAlignment        bool                           `json:"design_alignment"`
	RequirementsScore      float32                        `json:"requirements_score" jsonschema:"Top requirements similarity score"`
	DesignScore            float32                        `json:"design_score" jsonschema:"Top design similarity score"`
	RelatedRequirements    []engine.Evidence              `json:"related_requirements,omitempty"`
	RelatedDesigns         []engine.Evidence              `json:"related_designs,omitempty"`
	ReferencedRequirements []engine.ReferencedRequirement `json:"referenced_requirements,omitempty"`
	Error                  *engine.Error                  `json:"error,omitempty"`
}

type getDesignContextInput struct {
	ProjectID      string `json:"project_id" jsonschema:"required,Project identifier scoping the search"`
	ComponentName  string `json:"component_name" jsonschema:"required,Component name to gather design context for"`
	IncludeRelated *bool  `json:"include_related,omitempty" jsonschema:"Expand graph-related components (default: true)"`
}

type getDesignContextOutput struct {
	ComponentName     string                    `json:"component_name,omitempty"`
	Designs           []engine.Evidence         `json:"designs,omitempty"`
	Patterns          []engine.Evidence         `json:"patterns,omitempty"`
	RelatedComponents []engine.RelatedComponent `json:"related_components,omitempty"`
	RelatedStatus     string                    `json:"related_status,omitempty" jsonschema:"ok when the graph answered, unavailable when it was unreachable"`
	Error             *engine.Error             `json:"error,omitempty"`
}

type traceRequirementsInput struct {
	ProjectID       string `json:"project_id" jsonschema:"required,Project identifier scoping the search"`
	RequirementID   string `json:"requirement_id,omitempty" jsonschema:"Requirement memory id; takes precedence over requirement_text"`
	RequirementText string `json:"requirement_text,omitempty" jsonschema:"Requirement free text, used when no id is given"`
}

type traceRequirementsOutput struct {
	Requirement     *engine.RequirementRef    `json:"requirement,omitempty"`
	Implementations []engine.Evidence         `json:"implementations,omitempty"`
	Trace           []engine.RelatedComponent `json:"trace,omitempty"`
	TraceStatus     string                    `json:"trace_status,omitempty"`
	Error           *engine.Error             `json:"error,omitempty"`
}

// registerTools registers the four retrieval operations.
func (s *Server) registerTools() {
	// check_consistency
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "check_consistency",
		Description: "Check whether a code fragment is consistent with stored code patterns and designs",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args checkConsistencyInput) (res *mcp.CallToolResult, out checkConsistencyOutput, err error) {
		requestID := uuid.NewString()
		defer func() {
			if r := recover(); r != nil {
				out = checkConsistencyOutput{Error: s.panicEnvelope("check_consistency", requestID, engine.CodeConsistencyError, r)}
				res = textResult(errorText(out.Error))
			}
		}()

		result, cerr := s.engine.CheckConsistency(ctx, engine.CheckConsistencyRequest{
			ProjectID:     args.ProjectID,
			Code:          args.Code,
			ComponentName: args.ComponentName,
		})
		if cerr != nil {
			out.Error = s.envelope("check_consistency", requestID, cerr, engine.CodeConsistencyError)
			return textResult(errorText(out.Error)), out, nil
		}

		out = checkConsistencyOutput{
			Consistent:      result.Consistent,
			Issues:          result.Issues,
			MatchedPatterns: result.MatchedPatterns,
		}
		return textResult(fmt.Sprintf("Consistency: %t, %d issue(s), %d matched pattern(s)",
			result.Consistent, len(result.Issues), len(result.MatchedPatterns))), out, nil
	})

	// validate_fix
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "validate_fix",
		Description: "Validate that a proposed fix aligns with stored requirements and designs",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args validateFixInput) (res *mcp.CallToolResult, out validateFixOutput, err error) {
		requestID := uuid.NewString()
		defer func() {
			if r := recover(); r != nil {
				out = validateFixOutput{Error: s.panicEnvelope("validate_fix", requestID, engine.CodeValidationError, r)}
				res = textResult(errorText(out.Error))
			}
		}()

		result, verr := s.engine.ValidateFix(ctx, engine.ValidateFixRequest{
			ProjectID:      args.ProjectID,
			FixDescription: args.FixDescription,
			CodeChanges:    args.CodeChanges,
			RequirementIDs: args.RequirementIDs,
		})
		if verr != nil {
			out.Error = s.envelope("validate_fix", requestID, verr, engine.CodeValidationError)
			return textResult(errorText(out.Error)), out, nil
		}

		out = validateFixOutput{
			Valid:                  result.Valid,
			RequirementsAlignment:  result.RequirementsAlignment,
			DesignAlignment:        result.DesignAlignment,
			RequirementsScore:      result.RequirementsScore,
			DesignScore:            result.DesignScore,
			RelatedRequirements:    result.RelatedRequirements,
			RelatedDesigns:         result.RelatedDesigns,
			ReferencedRequirements: result.ReferencedRequirements,
		}
		return textResult(fmt.Sprintf("Fix valid: %t (requirements: %t, design: %t)",
			result.Valid, result.RequirementsAlignment, result.DesignAlignment)), out, nil
	})

	// get_design_context
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_design_context",
		Description: "Gather designs, code patterns, and graph-related components for a component name",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getDesignContextInput) (res *mcp.CallToolResult, out getDesignContextOutput, err error) {
		requestID := uuid.NewString()
		defer func() {
			if r := recover(); r != nil {
				out = getDesignContextOutput{Error: s.panicEnvelope("get_design_context", requestID, engine.CodeContextError, r)}
				res = textResult(errorText(out.Error))
			}
		}()

		includeRelated := true
		if args.IncludeRelated != nil {
			includeRelated = *args.IncludeRelated
		}

		result, gerr := s.engine.GetDesignContext(ctx, engine.DesignContextRequest{
			ProjectID:      args.ProjectID,
			ComponentName:  args.ComponentName,
			IncludeRelated: includeRelated,
		})
		if gerr != nil {
			out.Error = s.envelope("get_design_context", requestID, gerr, engine.CodeContextError)
			return textResult(errorText(out.Error)), out, nil
		}

		out = getDesignContextOutput{
			ComponentName:     result.ComponentName,
			Designs:           result.Designs,
			Patterns:          result.Patterns,
			RelatedComponents: result.RelatedComponents,
			RelatedStatus:     result.RelatedStatus,
		}
		return textResult(fmt.Sprintf("Design context for %s: %d design(s), %d pattern(s), %d related component(s)",
			result.ComponentName, len(result.Designs), len(result.Patterns), len(result.RelatedComponents))), out, nil
	})

	// trace_requirements
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "trace_requirements",
		Description: "Trace a requirement (by id or free text) to implementing code patterns, functions, and components",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args traceRequirementsInput) (res *mcp.CallToolResult, out traceRequirementsOutput, err error) {
		requestID := uuid.NewString()
		defer func() {
			if r := recover(); r != nil {
				out = traceRequirementsOutput{Error: s.panicEnvelope("trace_requirements", requestID, engine.CodeTraceError, r)}
				res = textResult(errorText(out.Error))
			}
		}()

		result, terr := s.engine.TraceRequirements(ctx, engine.TraceRequirementsRequest{
			ProjectID:       args.ProjectID,
			RequirementID:   args.RequirementID,
			RequirementText: args.RequirementText,
		})
		if terr != nil {
			out.Error = s.envelope("trace_requirements", requestID, terr, engine.CodeTraceError)
			return textResult(errorText(out.Error)), out, nil
		}

		out = traceRequirementsOutput{
			Requirement:     &result.Requirement,
			Implementations: result.Implementations,
			Trace:           result.Trace,
			TraceStatus:     result.TraceStatus,
		}
		return textResult(fmt.Sprintf("Found %d implementation(s) and %d trace node(s)",
			len(result.Implementations), len(result.Trace))), out, nil
	})
}

// textResult wraps a one-line summary as tool content.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
