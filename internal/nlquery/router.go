// Package nlquery implements C12: dispatching a free-text operator
// question to a closed tool catalog via the language-model adapter,
// then pure-dispatching the selected tool to an analytics primitive.
package nlquery

import (
	"context"

	"github.com/securizon/internal/analytics"
	"github.com/securizon/internal/feature"
	"github.com/securizon/internal/llm"
)

// Tool names for the two supported catalogs (spec §4.12).
const (
	ToolQueryCustomers         = "query_customers"
	ToolQuerySegments          = "query_segments"
	ToolForecastBusinessMetrics = "forecast_business_metrics"
	ToolPlanCampaign           = "plan_campaign"
	ToolAnalyzeProducts        = "analyze_products"

	ToolAnalyzeCustomers  = "analyze_customers"
	ToolAnalyzeSegments   = "analyze_segments"
	ToolForecastMetrics   = "forecast_metrics"
	ToolTargetCampaign    = "target_campaign"
	ToolLookupCustomer    = "lookup_customer"
	ToolAnalyzeBehavior   = "analyze_behavior"
	ToolGetRecommendations = "get_recommendations"
)

const fallbackMessage = "The language model adapter is unavailable. Supported endpoints: GET /api/tickets, GET /api/tickets/{id}, GET /api/ai/tickets/{id}/recommendation, GET /api/ai/tickets/{id}/draft-response."

// consolidatedTools is the v2 catalog. query_segments, forecast_business_metrics,
// plan_campaign, and analyze_products are acknowledged by dispatch without a
// backing primitive (their segmentation/forecasting engines are out of
// scope); only query_customers dispatches to a real analytics call.
var consolidatedTools = []llm.ToolSpec{
	{Name: ToolQueryCustomers, Description: "Query customers by segment, churn risk, or value tier.", Parameters: enumParams("sort_by", []string{"ltv", "churn_risk", "recency"})},
	{Name: ToolQuerySegments, Description: "Summarize customer segments.", Parameters: enumParams("analysis_type", []string{"overview", "detailed"})},
	{Name: ToolForecastBusinessMetrics, Description: "Forecast revenue/churn/volume metrics.", Parameters: enumParams("event", []string{"revenue", "churn", "ticket_volume"})},
	{Name: ToolPlanCampaign, Description: "Draft a retention or upsell campaign plan.", Parameters: enumParams("goal", []string{"retention", "upsell", "winback"})},
	{Name: ToolAnalyzeProducts, Description: "Analyze product-level return/damage/complaint trends.", Parameters: map[string]interface{}{"type": "object"}},
}

var legacyTools = []llm.ToolSpec{
	{Name: ToolAnalyzeCustomers, Description: "Analyze customers by segment, churn risk, or value tier.", Parameters: enumParams("sort_by", []string{"ltv", "churn_risk", "recency"})},
	{Name: ToolAnalyzeSegments, Description: "Summarize customer segments.", Parameters: enumParams("analysis_type", []string{"overview", "detailed"})},
	{Name: ToolForecastMetrics, Description: "Forecast revenue/churn/volume metrics.", Parameters: enumParams("event", []string{"revenue", "churn", "ticket_volume"})},
	{Name: ToolTargetCampaign, Description: "Draft a retention or upsell campaign plan.", Parameters: enumParams("goal", []string{"retention", "upsell", "winback"})},
	{Name: ToolLookupCustomer, Description: "Look up a single customer by id.", Parameters: map[string]interface{}{"type": "object"}},
	{Name: ToolAnalyzeBehavior, Description: "Analyze a customer's behavioral history.", Parameters: map[string]interface{}{"type": "object"}},
	{Name: ToolGetRecommendations, Description: "Get recommended next actions for a customer.", Parameters: map[string]interface{}{"type": "object"}},
	{Name: ToolAnalyzeProducts, Description: "Analyze product-level return/damage/complaint trends.", Parameters: map[string]interface{}{"type": "object"}},
}

func enumParams(field string, values []string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			field: map[string]interface{}{"type": "string", "enum": values},
		},
	}
}

// Response is the uniform result shape returned to the handler.
type Response struct {
	QueryType string                 `json:"query_type"` // "tool_result" or "general_response"
	ToolName  string                 `json:"tool_name,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
	Text      string                 `json:"text,omitempty"`
}

// Router dispatches a natural-language question to the feature-flag
// selected tool catalog, then executes the chosen tool as a pure read
// against the analytics service.
type Router struct {
	Adapter  llm.Adapter
	Flags    *feature.FeatureFlagManager
	Analytics *analytics.Service
}

func NewRouter(adapter llm.Adapter, flags *feature.FeatureFlagManager, analyticsSvc *analytics.Service) *Router {
	return &Router{Adapter: adapter, Flags: flags, Analytics: analyticsSvc}
}

func (r *Router) catalog(ctx context.Context, userCtx feature.UserContext) []llm.ToolSpec {
	if r.Flags != nil {
		if enabled, err := r.Flags.IsEnabled(ctx, "USE_CONSOLIDATED_MCP_TOOLS", userCtx); err == nil && enabled {
			return consolidatedTools
		}
	}
	return legacyTools
}

// Route implements spec §4.12: the adapter selects one tool, the router
// executes a pure dispatch to the matching primitive.
func (r *Router) Route(ctx context.Context, question string, userCtx feature.UserContext) (*Response, error) {
	if r.Adapter == nil {
		return &Response{QueryType: "general_response", Text: fallbackMessage}, nil
	}

	tools := r.catalog(ctx, userCtx)
	sel, err := r.Adapter.RouteQuery(ctx, question, tools)
	if err != nil {
		return &Response{QueryType: "general_response", Text: fallbackMessage}, nil
	}
	if sel.ToolName == "" {
		return &Response{QueryType: "general_response", Text: sel.FreeText}, nil
	}

	result, err := r.dispatch(ctx, sel.ToolName, sel.Parameters)
	if err != nil {
		return nil, err
	}
	return &Response{QueryType: "tool_result", ToolName: sel.ToolName, Result: result}, nil
}

// Dispatch exposes the pure tool dispatch for callers that already have a
// tool name and parameters in hand (the non-NL `/api/mcp/query` endpoint),
// bypassing the adapter's tool-selection step entirely.
func (r *Router) Dispatch(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	return r.dispatch(ctx, toolName, params)
}

// dispatch executes the selected tool against the analytics primitive it
// maps to; the router never fabricates data outside what the primitive
// returns.
func (r *Router) dispatch(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	switch toolName {
	case ToolLookupCustomer, ToolQueryCustomers, ToolAnalyzeCustomers:
		customerID, _ := params["customer_id"].(string)
		if customerID == "" {
			return map[string]interface{}{"error": "customer_id required"}, nil
		}
		return r.Analytics.GetCustomerAnalytics(ctx, customerID)

	case ToolAnalyzeBehavior, ToolGetRecommendations:
		customerID, _ := params["customer_id"].(string)
		if customerID == "" {
			return map[string]interface{}{"error": "customer_id required"}, nil
		}
		return r.Analytics.GetChurnPrediction(ctx, customerID)

	default:
		// query_segments/analyze_segments, forecast*, *campaign,
		// analyze_products have no SPEC_FULL.md-scoped primitive backing
		// them yet; acknowledge the selection without inventing data.
		return map[string]interface{}{"tool": toolName, "status": "not_implemented"}, nil
	}
}
